package pipeline

import (
	"context"
	"time"

	"rowstats/internal/aggregate"
	"rowstats/internal/format"
	"rowstats/internal/metrics"
	"rowstats/internal/table"
	"rowstats/internal/window"
)

// Summarize runs the scan with the named accumulator strategy and returns
// the per-key summaries in byte-wise key order.
func Summarize(ctx context.Context, src window.Source, opts Options, strategy string) ([]format.Entry, Stats, error) {
	if err := aggregate.ValidStrategy(strategy); err != nil {
		return nil, Stats{}, err
	}
	switch strategy {
	case "batched":
		return summarize(ctx, src, opts, aggregate.NewBatched)
	default:
		return summarize(ctx, src, opts, aggregate.NewScalar)
	}
}

func summarize[A aggregate.Aggregate[A]](ctx context.Context, src window.Source, opts Options, fresh func() A) ([]format.Entry, Stats, error) {
	shared, stats, err := Run(ctx, src, opts, fresh)
	if err != nil {
		return nil, stats, err
	}
	begin := time.Now()
	entries := Entries(shared)
	metrics.RecordStep(opts.withDefaults().Job, "merge", nil, time.Since(begin))
	return entries, stats, nil
}

// Entries reads a merged table into sorted format entries. Keys with no
// values are omitted.
func Entries[A aggregate.Aggregate[A]](shared *table.Shared[A]) []format.Entry {
	out := make([]format.Entry, 0, shared.Len())
	shared.Each(func(key string, acc A) {
		s := acc.Summary()
		if s.Count == 0 {
			return
		}
		out = append(out, format.Entry{Key: key, Summary: s})
	})
	return out
}
