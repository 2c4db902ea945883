// Package table maps station keys to accumulators.
//
// Local is a single-owner open-addressing table used inside one worker; it is
// not safe for concurrent use. Shared is the sharded, mutex-guarded table that
// worker results are merged into.
package table

import (
	"bytes"

	"github.com/zeebo/xxh3"
)

const minCapacity = 1 << 10

// hash is the key hash used by both tables.
func hash(b []byte) uint64 { return xxh3.Hash(b) }

type slot[A any] struct {
	hash uint64
	key  []byte
	acc  A
	used bool
}

// Local is an open-addressing hash table with linear probing. Keys are
// compared by full byte equality; the key bytes are copied on first insert so
// callers may pass sub-slices of a reusable buffer.
type Local[A any] struct {
	slots []slot[A]
	mask  uint64
	n     int
	fresh func() A
}

// NewLocal returns a table sized for about hint distinct keys. fresh builds
// the accumulator for a newly seen key.
func NewLocal[A any](hint int, fresh func() A) *Local[A] {
	c := minCapacity
	for c < 2*hint {
		c <<= 1
	}
	return &Local[A]{slots: make([]slot[A], c), mask: uint64(c - 1), fresh: fresh}
}

// Get returns the accumulator for key, creating it if absent.
func (t *Local[A]) Get(key []byte) A {
	h := hash(key)
	i := h & t.mask
	for {
		s := &t.slots[i]
		if !s.used {
			break
		}
		if s.hash == h && bytes.Equal(s.key, key) {
			return s.acc
		}
		i = (i + 1) & t.mask
	}
	if 2*(t.n+1) > len(t.slots) {
		t.grow()
		return t.Get(key)
	}
	s := &t.slots[i]
	s.used = true
	s.hash = h
	s.key = bytes.Clone(key)
	s.acc = t.fresh()
	t.n++
	return s.acc
}

func (t *Local[A]) grow() {
	old := t.slots
	t.slots = make([]slot[A], 2*len(old))
	t.mask = uint64(len(t.slots) - 1)
	for _, s := range old {
		if !s.used {
			continue
		}
		i := s.hash & t.mask
		for t.slots[i].used {
			i = (i + 1) & t.mask
		}
		t.slots[i] = s
	}
}

// Len returns the number of distinct keys.
func (t *Local[A]) Len() int { return t.n }

// Each calls fn for every key in unspecified order. The key slice is owned by
// the table and stays valid for its lifetime.
func (t *Local[A]) Each(fn func(key []byte, acc A)) {
	for i := range t.slots {
		if t.slots[i].used {
			fn(t.slots[i].key, t.slots[i].acc)
		}
	}
}
