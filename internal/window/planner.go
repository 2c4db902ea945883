// Package window splits the input into fixed-size nominal windows and aligns
// each claimed window to record terminators.
//
// Windows are claimed dynamically: every worker asks the shared Planner for
// the next unclaimed window, so workers that finish early simply take more
// work. Trimming happens after claiming, and the trimmed spans of all windows
// partition [0, Len) exactly.
package window

import (
	"fmt"
	"sync/atomic"
)

const (
	// DefaultSize is the nominal window size.
	DefaultSize = 32 << 20 // 32 MiB

	// DefaultOverlap is the maximum record length the boundary scan
	// tolerates: a 100-byte key, the separator and a 5-byte value.
	DefaultOverlap = 100 + 1 + 5
)

// Window is a nominal byte range [Start, Start+Size) clipped to the input.
type Window struct {
	Index int64
	Start int
	Size  int
}

// End returns the nominal, unaligned end of w for an input of length n.
func (w Window) End(n int) int {
	return min(w.Start+w.Size, n)
}

// Last reports whether w is the final window for an input of length n.
func (w Window) Last(n int) bool {
	return w.Start+w.Size >= n
}

// Planner hands out windows over [0, length). It is safe for concurrent use
// and never blocks.
type Planner struct {
	length int
	size   int
	next   atomic.Int64
}

// NewPlanner returns a Planner for an input of length bytes and windows of
// size bytes.
func NewPlanner(length, size int) (*Planner, error) {
	if length < 0 {
		return nil, fmt.Errorf("window: negative length %d", length)
	}
	if size <= 0 {
		return nil, fmt.Errorf("window: size must be > 0, got %d", size)
	}
	return &Planner{length: length, size: size}, nil
}

// Next claims the next unclaimed window. It returns false once every window
// has been handed out.
func (p *Planner) Next() (Window, bool) {
	idx := p.next.Add(1) - 1
	// Compare in int64 so a huge index cannot overflow start.
	start := idx * int64(p.size)
	if start >= int64(p.length) {
		return Window{}, false
	}
	return Window{Index: idx, Start: int(start), Size: p.size}, true
}

// Count returns the total number of nominal windows.
func (p *Planner) Count() int {
	return (p.length + p.size - 1) / p.size
}

// Len returns the input length the planner was built for.
func (p *Planner) Len() int { return p.length }
