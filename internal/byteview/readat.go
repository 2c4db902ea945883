package byteview

import (
	"fmt"

	"golang.org/x/exp/mmap"
)

// readerAt adapts *mmap.ReaderAt. The package does not expose the mapped
// slice, so Slice copies the requested range.
type readerAt struct {
	r *mmap.ReaderAt
}

// OpenReaderAt maps path with golang.org/x/exp/mmap. It works on every
// platform that package supports, at the cost of one copy per window.
func OpenReaderAt(path string) (View, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}
	if r.Len() == 0 {
		_ = r.Close()
		return nil, fmt.Errorf("%w: %s is empty", ErrInputUnavailable, path)
	}
	return &readerAt{r: r}, nil
}

func (v *readerAt) Len() int        { return v.r.Len() }
func (v *readerAt) At(off int) byte { return v.r.At(off) }
func (v *readerAt) Close() error    { return v.r.Close() }

func (v *readerAt) Slice(lo, hi int) []byte {
	buf := make([]byte, hi-lo)
	// ReadAt only fails past the end of the mapping; callers stay in range.
	n, _ := v.r.ReadAt(buf, int64(lo))
	return buf[:n]
}
