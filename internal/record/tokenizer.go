// Package record tokenizes "<key>;<value>\n" records and decodes their
// one-decimal numeric field.
//
// The tokenizer never copies: keys and values are sub-slices of the window it
// scans. Callers copy a key only the first time they see it.
package record

import (
	"bytes"
	"io"
)

const (
	// Separator splits the key from the value.
	Separator byte = ';'
	// Terminator ends a record.
	Terminator byte = '\n'

	// DefaultMaxKey is the longest key accepted when no cap is configured.
	DefaultMaxKey = 100
)

// Tokenizer yields records from a record-aligned byte slice.
type Tokenizer struct {
	data   []byte
	pos    int
	maxKey int

	lastOff int
	lastRaw []byte
}

// NewTokenizer returns a Tokenizer over data. maxKey <= 0 selects
// DefaultMaxKey.
func NewTokenizer(data []byte, maxKey int) *Tokenizer {
	if maxKey <= 0 {
		maxKey = DefaultMaxKey
	}
	return &Tokenizer{data: data, maxKey: maxKey}
}

// Reset points t at a new slice, keeping its key cap.
func (t *Tokenizer) Reset(data []byte) {
	t.data = data
	t.pos = 0
	t.lastOff = 0
	t.lastRaw = nil
}

// Next returns the key and value of the next record. It returns io.EOF when
// data is exhausted. A final record without a terminator is accepted.
//
// A malformed record yields an *Error; the tokenizer has already advanced
// past that record's terminator, so the caller may keep calling Next.
func (t *Tokenizer) Next() (key, value []byte, err error) {
	if t.pos >= len(t.data) {
		return nil, nil, io.EOF
	}
	start := t.pos
	rest := t.data[start:]

	line := rest
	if nl := bytes.IndexByte(rest, Terminator); nl >= 0 {
		line = rest[:nl]
		t.pos = start + nl + 1
	} else {
		t.pos = len(t.data)
	}
	t.lastOff, t.lastRaw = start, line

	sep := bytes.IndexByte(line, Separator)
	switch {
	case sep < 0:
		return nil, nil, &Error{Offset: start, Reason: ReasonMissingSeparator, Raw: line}
	case sep == 0:
		return nil, nil, &Error{Offset: start, Reason: ReasonEmptyKey, Raw: line}
	case sep > t.maxKey:
		return nil, nil, &Error{Offset: start, Reason: ReasonKeyTooLong, Raw: line}
	}
	return line[:sep], line[sep+1:], nil
}

// Last returns the offset and raw bytes of the record most recently returned
// by Next, for error reporting by callers that reject its value.
func (t *Tokenizer) Last() (offset int, raw []byte) {
	return t.lastOff, t.lastRaw
}
