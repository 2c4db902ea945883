package window

import (
	"bytes"
	"errors"
	"fmt"
)

// Terminator ends every record.
const Terminator byte = '\n'

// ErrBoundaryOverrun reports that no terminator was found within the overlap
// margin. It means the margin is smaller than the longest record, which is a
// configuration error rather than bad input.
var ErrBoundaryOverrun = errors.New("window: no record terminator within overlap margin")

// Source is the subset of byteview.View needed for trimming.
type Source interface {
	Len() int
	Slice(lo, hi int) []byte
}

// Span is a trimmed, record-aligned half-open range [Start, End). End is one
// past the terminator of the last record the owning worker scans, or the
// input length for the final window.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes in s.
func (s Span) Len() int { return s.End - s.Start }

// Empty reports whether s contains no bytes.
func (s Span) Empty() bool { return s.End <= s.Start }

// Trim aligns w to record boundaries.
//
// A window that does not start at 0 skips the partial leading record: the
// worker that claimed the previous window extends its own end through that
// record's terminator. A window that is not the last one extends its end past
// the first terminator at or after its nominal end.
//
// Precondition: overlap >= the longest record (terminator excluded). Both
// scans are bounded by the input length and by overlap; exhausting overlap
// returns ErrBoundaryOverrun.
func Trim(src Source, w Window, overlap int) (Span, error) {
	if overlap < 0 {
		return Span{}, fmt.Errorf("window: overlap must be >= 0, got %d", overlap)
	}
	n := src.Len()

	start := 0
	if w.Start > 0 {
		p, err := seekPast(src, w.Start, overlap)
		if err != nil {
			return Span{}, fmt.Errorf("window %d: align start at %d: %w", w.Index, w.Start, err)
		}
		start = p
	}

	end := n
	if !w.Last(n) {
		p, err := seekPast(src, w.End(n), overlap)
		if err != nil {
			return Span{}, fmt.Errorf("window %d: align end at %d: %w", w.Index, w.End(n), err)
		}
		end = p
	}

	return Span{Start: start, End: end}, nil
}

// seekPast returns the offset one past the first terminator in
// [from, from+overlap]. If the input ends first, it returns the input length:
// the trailing record is unterminated and belongs to the earlier window.
func seekPast(src Source, from, overlap int) (int, error) {
	n := src.Len()
	if from >= n {
		return n, nil
	}
	hi := min(n, from+overlap+1)
	if i := bytes.IndexByte(src.Slice(from, hi), Terminator); i >= 0 {
		return from + i + 1, nil
	}
	if hi == n {
		return n, nil
	}
	return 0, ErrBoundaryOverrun
}
