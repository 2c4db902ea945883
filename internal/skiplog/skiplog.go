// Package skiplog records malformed input records that were skipped.
//
// Each skip increments a per-reason counter and, when a file is configured,
// appends one CSV row: reason, byte offset, raw record bytes.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// Header is the first row of every skip log.
var Header = []string{"reason", "offset", "raw"}

// Log is safe for concurrent use by pipeline workers.
type Log struct {
	mu      sync.Mutex
	reasons map[string]int
	path    string
	w       *csv.Writer
	err     error // first write, flush or close failure
}

// New opens a skip log. An empty path keeps counters only. The returned
// cleanup flushes and closes the file and is safe to call more than once. A
// failed write is logged by cleanup and reported by Err.
func New(path string) (*Log, func(), error) {
	s := &Log{reasons: make(map[string]int)}
	if path == "" {
		return s, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("skiplog: open %s: %w", path, err)
	}
	s.path = path
	s.w = csv.NewWriter(f)
	s.setErr(s.w.Write(Header))

	var once sync.Once
	return s, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.w.Flush()
			s.setErr(s.w.Error())
			s.setErr(f.Close())
			if s.err != nil {
				log.Printf("skiplog: %s is incomplete: %v", s.path, s.err)
			}
		})
	}, nil
}

// setErr keeps the first failure. Callers hold mu, except New before the log
// is shared.
func (s *Log) setErr(err error) {
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("skiplog: write %s: %w", s.path, err)
	}
}

// Err returns the first write, flush or close failure, if any.
func (s *Log) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Add records one skipped record.
func (s *Log) Add(reason string, offset int, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons[reason]++
	if s.w != nil {
		s.setErr(s.w.Write([]string{reason, strconv.Itoa(offset), string(raw)}))
	}
}

// Count returns the number of skips recorded for reason.
func (s *Log) Count(reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reasons[reason]
}

// Total returns the number of skips across all reasons.
func (s *Log) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.reasons {
		n += c
	}
	return n
}

// Reasons returns the recorded reasons in sorted order.
func (s *Log) Reasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.reasons))
	for r := range s.reasons {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
