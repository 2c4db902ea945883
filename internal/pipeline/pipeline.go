// Package pipeline runs the windowed scan: a fixed pool of workers claims
// windows from a shared planner, trims each to record boundaries, tokenizes
// and aggregates into a worker-local table, and finally folds that table into
// a shared, sharded result.
//
// Run is generic over the accumulator so the per-record path has no dynamic
// dispatch; Summarize selects the accumulator by strategy name.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"rowstats/internal/aggregate"
	"rowstats/internal/metrics"
	"rowstats/internal/record"
	"rowstats/internal/table"
	"rowstats/internal/window"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "rowstats/internal/pipeline"

// Policy decides what happens to a malformed record.
type Policy string

const (
	// PolicyAbort fails the run on the first malformed record.
	PolicyAbort Policy = "abort"
	// PolicySkip counts the record per reason and continues.
	PolicySkip Policy = "skip"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	}
	return "", fmt.Errorf("pipeline: unknown malformed-record policy %q (want abort or skip)", s)
}

// SkipSink receives skipped records. *skiplog.Log satisfies it.
type SkipSink interface {
	Add(reason string, offset int, raw []byte)
}

// Options configures one run. Zero fields take defaults.
type Options struct {
	Workers    int            // default runtime.NumCPU()
	WindowSize int            // default window.DefaultSize
	Overlap    int            // default window.DefaultOverlap
	MaxKey     int            // default record.DefaultMaxKey
	Decoder    record.Decoder // default record.ParseTenths
	Policy     Policy         // default PolicyAbort
	Skips      SkipSink       // optional, used with PolicySkip
	Job        string         // metrics job label, default "rowstats"

	// KeyHint sizes each worker's local table.
	KeyHint int

	// TracerProvider receives the scan and worker spans. Default is the
	// global provider.
	TracerProvider trace.TracerProvider
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.WindowSize <= 0 {
		o.WindowSize = window.DefaultSize
	}
	if o.Overlap <= 0 {
		o.Overlap = window.DefaultOverlap
	}
	if o.MaxKey <= 0 {
		o.MaxKey = record.DefaultMaxKey
	}
	if o.Decoder == nil {
		o.Decoder = record.ParseTenths
	}
	if o.Policy == "" {
		o.Policy = PolicyAbort
	}
	if o.Job == "" {
		o.Job = "rowstats"
	}
	if o.KeyHint <= 0 {
		o.KeyHint = 1 << 10
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	return o
}

// Stats describes a finished run.
type Stats struct {
	Bytes    int
	Records  int64
	Skipped  map[record.Reason]int64
	Windows  int64
	Workers  int
	Keys     int
	Duration time.Duration
}

// TotalSkipped sums Skipped over all reasons.
func (s Stats) TotalSkipped() int64 {
	var n int64
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

type workerStats struct {
	bytes   int64
	records int64
	windows int64
	skipped map[record.Reason]int64
}

// Run scans src with opts and returns the merged table. fresh creates the
// accumulator for a newly seen key.
//
// The returned table is complete only when err is nil. With PolicyAbort the
// error wraps *record.Error; a too-small overlap yields
// window.ErrBoundaryOverrun.
func Run[A aggregate.Aggregate[A]](ctx context.Context, src window.Source, opts Options, fresh func() A) (*table.Shared[A], Stats, error) {
	opts = opts.withDefaults()
	begin := time.Now()

	planner, err := window.NewPlanner(src.Len(), opts.WindowSize)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("pipeline: %w", err)
	}
	workers := max(1, min(opts.Workers, planner.Count()))

	tr := opts.TracerProvider.Tracer(tracerName)
	ctx, span := tr.Start(ctx, "rowstats.scan",
		trace.WithAttributes(
			attribute.Int("scan.bytes", planner.Len()),
			attribute.Int("scan.window_size", opts.WindowSize),
			attribute.Int("scan.windows", planner.Count()),
			attribute.Int("scan.workers", workers),
			attribute.String("scan.policy", string(opts.Policy)),
		))
	defer span.End()

	shared := table.NewShared[A]()
	stats := Stats{Bytes: planner.Len(), Workers: workers, Skipped: map[record.Reason]int64{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < workers; id++ {
		g.Go(func() error {
			ws, err := scanWorker(gctx, tr, id, src, planner, opts, fresh, shared)
			mu.Lock()
			stats.Records += ws.records
			stats.Windows += ws.windows
			for r, c := range ws.skipped {
				stats.Skipped[r] += c
			}
			mu.Unlock()
			return err
		})
	}
	err = g.Wait()
	stats.Keys = shared.Len()
	stats.Duration = time.Since(begin)

	span.SetAttributes(
		attribute.Int64("scan.records", stats.Records),
		attribute.Int64("scan.skipped", stats.TotalSkipped()),
		attribute.Int("scan.keys", stats.Keys),
	)
	metrics.RecordStep(opts.Job, "scan", err, stats.Duration)
	metrics.RecordWindows(opts.Job, stats.Windows)
	metrics.RecordRow(opts.Job, "aggregated", stats.Records)
	for r, c := range stats.Skipped {
		metrics.RecordRow(opts.Job, "skipped_"+string(r), c)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, stats, err
	}
	return shared, stats, nil
}

// scanWorker claims windows until none remain, then merges its local table.
// The local table is merged only on success.
func scanWorker[A aggregate.Aggregate[A]](
	ctx context.Context,
	tr trace.Tracer,
	id int,
	src window.Source,
	planner *window.Planner,
	opts Options,
	fresh func() A,
	shared *table.Shared[A],
) (ws workerStats, err error) {
	_, span := tr.Start(ctx, "rowstats.worker", trace.WithAttributes(attribute.Int("worker.id", id)))
	defer func() {
		span.SetAttributes(
			attribute.Int64("worker.bytes", ws.bytes),
			attribute.Int64("worker.records", ws.records),
			attribute.Int64("worker.windows", ws.windows),
		)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	local := table.NewLocal(opts.KeyHint, fresh)
	tok := record.NewTokenizer(nil, opts.MaxKey)

	for {
		if err := ctx.Err(); err != nil {
			return ws, err
		}
		w, ok := planner.Next()
		if !ok {
			break
		}
		sp, err := window.Trim(src, w, opts.Overlap)
		if err != nil {
			return ws, fmt.Errorf("pipeline: %w", err)
		}
		ws.windows++
		if sp.Empty() {
			continue
		}
		ws.bytes += int64(sp.Len())

		tok.Reset(src.Slice(sp.Start, sp.End))
		for {
			key, val, err := tok.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				var rerr *record.Error
				if !errors.As(err, &rerr) {
					return ws, err
				}
				rerr.Offset += sp.Start
				if err := reject(opts, rerr, &ws); err != nil {
					return ws, err
				}
				continue
			}
			tenths, ok := opts.Decoder(val)
			if !ok {
				off, raw := tok.Last()
				rerr := &record.Error{Offset: sp.Start + off, Reason: record.ReasonBadNumber, Raw: raw}
				if err := reject(opts, rerr, &ws); err != nil {
					return ws, err
				}
				continue
			}
			local.Get(key).Add(tenths)
			ws.records++
		}
	}

	shared.Absorb(local)
	return ws, nil
}

// reject applies the malformed-record policy. The returned error owns a copy
// of the raw bytes so it outlives the mapping.
func reject(opts Options, rerr *record.Error, ws *workerStats) error {
	if opts.Policy == PolicyAbort {
		rerr.Raw = bytes.Clone(rerr.Raw)
		return fmt.Errorf("pipeline: %w", rerr)
	}
	if ws.skipped == nil {
		ws.skipped = make(map[record.Reason]int64)
	}
	ws.skipped[rerr.Reason]++
	if opts.Skips != nil {
		opts.Skips.Add(string(rerr.Reason), rerr.Offset, rerr.Raw)
	}
	return nil
}
