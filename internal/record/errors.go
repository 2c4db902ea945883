package record

import (
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by every *Error.
var ErrMalformed = errors.New("record: malformed")

// Reason classifies a malformed record. Reasons double as metric and
// skip-log labels.
type Reason string

const (
	ReasonMissingSeparator Reason = "missing_separator"
	ReasonEmptyKey         Reason = "empty_key"
	ReasonKeyTooLong       Reason = "key_too_long"
	ReasonBadNumber        Reason = "bad_number"
)

// Error describes one malformed record.
type Error struct {
	Offset int    // offset of the record's first byte within the tokenized slice
	Reason Reason // classification
	Raw    []byte // the record bytes without terminator; aliases the input
}

func (e *Error) Error() string {
	const maxRaw = 64
	raw := e.Raw
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return fmt.Sprintf("record: malformed at offset %d: %s: %q", e.Offset, e.Reason, raw)
}

// Unwrap lets errors.Is(err, ErrMalformed) match.
func (e *Error) Unwrap() error { return ErrMalformed }
