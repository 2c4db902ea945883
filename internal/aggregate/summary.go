// Package aggregate keeps running min/max/sum/count statistics per key.
//
// Values are integer tenths, so sums are exact and merging is associative and
// commutative bit for bit. Two interchangeable accumulators exist: Scalar,
// which updates on every value, and Batched, which folds fixed-width lane
// groups and reduces horizontally when read.
package aggregate

import "fmt"

// Aggregate is implemented by pointer accumulators. A is the accumulator's
// own type so Merge stays statically typed.
type Aggregate[A any] interface {
	Add(tenths int64)
	Merge(other A)
	Summary() Summary
}

// Strategies lists the accumulator names accepted by configuration.
var Strategies = []string{"scalar", "batched"}

// ValidStrategy reports whether name is a known strategy.
func ValidStrategy(name string) error {
	for _, s := range Strategies {
		if s == name {
			return nil
		}
	}
	return fmt.Errorf("aggregate: unknown strategy %q (want scalar or batched)", name)
}

// Summary holds finalized statistics. The zero value is an empty summary;
// Min and Max are meaningless while Count is 0.
type Summary struct {
	Min   int64
	Max   int64
	Sum   int64
	Count int64
}

// Add folds one value into s.
func (s *Summary) Add(v int64) {
	if s.Count == 0 {
		s.Min, s.Max = v, v
	} else {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Sum += v
	s.Count++
}

// Merge folds o into s.
func (s *Summary) Merge(o Summary) {
	if o.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = o
		return
	}
	s.Min = min(s.Min, o.Min)
	s.Max = max(s.Max, o.Max)
	s.Sum += o.Sum
	s.Count += o.Count
}

// Mean returns the average in tenths, rounded half toward positive infinity.
// It is computed in integers so the result never depends on float rounding.
// Negative ties round up too: -0.25 gives -0.2, where formatting the float
// mean half away from zero would print -0.3.
func (s Summary) Mean() int64 {
	if s.Count == 0 {
		return 0
	}
	return floorDiv(2*s.Sum+s.Count, 2*s.Count)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
