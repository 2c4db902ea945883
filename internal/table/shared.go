package table

import (
	"sort"
	"sync"
)

const shardCount = 64

type shard[A any] struct {
	mu sync.Mutex
	m  map[string]A
}

// Shared is a concurrent key table split into mutex-guarded shards.
type Shared[A interface{ Merge(A) }] struct {
	shards [shardCount]shard[A]
}

// NewShared returns an empty Shared table.
func NewShared[A interface{ Merge(A) }]() *Shared[A] {
	s := &Shared[A]{}
	for i := range s.shards {
		s.shards[i].m = make(map[string]A)
	}
	return s
}

func (s *Shared[A]) shardFor(key []byte) *shard[A] {
	return &s.shards[hash(key)%shardCount]
}

// Merge folds acc into the entry for key. The first accumulator seen for a
// key is stored as is; callers must not reuse it afterwards.
func (s *Shared[A]) Merge(key []byte, acc A) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	if cur, ok := sh.m[string(key)]; ok {
		cur.Merge(acc)
	} else {
		sh.m[string(key)] = acc
	}
	sh.mu.Unlock()
}

// Absorb merges every entry of a worker-local table.
func (s *Shared[A]) Absorb(l *Local[A]) {
	l.Each(func(key []byte, acc A) { s.Merge(key, acc) })
}

// Len returns the number of distinct keys.
func (s *Shared[A]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.m)
		sh.mu.Unlock()
	}
	return n
}

// Keys returns every key in byte-wise ascending order.
func (s *Shared[A]) Keys() []string {
	keys := make([]string, 0, s.Len())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for k := range sh.m {
			keys = append(keys, k)
		}
		sh.mu.Unlock()
	}
	sort.Strings(keys)
	return keys
}

// Each calls fn for every entry in byte-wise ascending key order. It must
// not run concurrently with Merge.
func (s *Shared[A]) Each(fn func(key string, acc A)) {
	for _, k := range s.Keys() {
		sh := s.shardFor([]byte(k))
		fn(k, sh.m[k])
	}
}
