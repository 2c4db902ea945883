// Package byteview provides read-only, randomly addressable views over the
// whole input file. The scan pipeline only needs three operations: the total
// length, a single byte at an offset, and a sub-slice for tokenizing a window.
//
// Three providers exist:
//
//   - "mmap":   zero-copy mapping via golang.org/x/sys/unix (unix platforms).
//   - "readat": portable mapping via golang.org/x/exp/mmap; Slice copies.
//   - "heap":   the whole file read into memory (small inputs, tests).
//
// All views are safe for concurrent readers once opened.
package byteview

import (
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrInputUnavailable is returned when the input is missing, unreadable or
// empty. It is fatal and reported before any worker starts.
var ErrInputUnavailable = errors.New("byteview: input unavailable")

// View is a read-only view over an input of known length.
type View interface {
	// Len returns the total number of addressable bytes.
	Len() int
	// At returns the byte at off. off must be in [0, Len()).
	At(off int) byte
	// Slice returns the bytes in [lo, hi). The result must not be modified
	// and is only valid until Close.
	Slice(lo, hi int) []byte
	// Close releases the underlying mapping or file handle.
	Close() error
}

// Kinds lists the provider names accepted by Open.
var Kinds = []string{"mmap", "readat", "heap"}

// Open opens path with the named provider. An empty kind means "mmap".
func Open(path, kind string) (View, error) {
	size, err := statSize(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "", "mmap":
		return openMmap(path, size)
	case "readat":
		return OpenReaderAt(path)
	case "heap":
		return OpenHeap(path)
	default:
		return nil, fmt.Errorf("byteview: unknown view kind %q", kind)
	}
}

// statSize validates that path names a non-empty regular file that fits a
// single contiguous address range.
func statSize(path string) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}
	if st.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrInputUnavailable, path)
	}
	if st.Size() == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrInputUnavailable, path)
	}
	if st.Size() > math.MaxInt {
		return 0, fmt.Errorf("%w: %s is too large to map (%d bytes)", ErrInputUnavailable, path, st.Size())
	}
	return int(st.Size()), nil
}

// Bytes is a View over an in-memory byte slice.
type Bytes []byte

// FromBytes wraps b without copying.
func FromBytes(b []byte) Bytes { return Bytes(b) }

func (b Bytes) Len() int                { return len(b) }
func (b Bytes) At(off int) byte         { return b[off] }
func (b Bytes) Slice(lo, hi int) []byte { return b[lo:hi:hi] }
func (b Bytes) Close() error            { return nil }

// OpenHeap reads the whole file into memory.
func OpenHeap(path string) (View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInputUnavailable, path)
	}
	return Bytes(data), nil
}
