// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from an aggregation run.
//
// It exposes a narrow Backend interface (counters and timing observations)
// behind a global, pluggable backend that defaults to a no-op, so the
// pipeline can always record without checking whether metrics are enabled.
// Concrete systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal           = "rowstats_step_total"
	StepDurationSeconds = "rowstats_step_duration_seconds"
	RecordsTotal        = "rowstats_records_total"
	WindowsTotal        = "rowstats_windows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
// Call it before any run starts.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep records latency and success/failure of one run stage
// (open, scan, merge, render, sink).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter for the given job and kind.
//
// Kinds used by the pipeline:
//   - "aggregated"
//   - "skipped_<reason>" for each malformed-record reason
//   - "stored"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordWindows increments the count of processed windows.
func RecordWindows(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(WindowsTotal, float64(delta), Labels{
		"job": job,
	})
}
