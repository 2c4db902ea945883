//go:build linux || darwin || freebsd || netbsd || openbsd

package byteview

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapped is a zero-copy View over a read-only shared mapping.
type mapped struct {
	data []byte
}

// openMmap maps the whole file read-only. The file descriptor is closed right
// after mapping; the mapping stays valid until Close.
func openMmap(path string, size int) (View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}
	defer f.Close()

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrInputUnavailable, path, err)
	}

	// Best-effort kernel hint: every page will be read once, soon.
	_ = unix.Madvise(data, unix.MADV_WILLNEED)

	return &mapped{data: data}, nil
}

func (m *mapped) Len() int                { return len(m.data) }
func (m *mapped) At(off int) byte         { return m.data[off] }
func (m *mapped) Slice(lo, hi int) []byte { return m.data[lo:hi:hi] }

func (m *mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
