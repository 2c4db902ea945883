// Package verify compares a rendered summary with an expected file.
package verify

import (
	"errors"
	"fmt"
	"os"

	"github.com/andreyvit/diff"
)

// ErrMismatch is returned (wrapped in *MismatchError) when the output does
// not match the expected text.
var ErrMismatch = errors.New("verify: output mismatch")

// MismatchError carries a line diff of expected versus actual output.
type MismatchError struct {
	Path string
	Diff string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verify: output differs from %s:\n%s", e.Path, e.Diff)
}

func (e *MismatchError) Unwrap() error { return ErrMismatch }

// Compare returns an empty string when expected and got are equal after
// trimming surrounding whitespace on each line, and a line diff otherwise.
func Compare(expected, got string) string {
	want := diff.TrimLinesInString(expected)
	have := diff.TrimLinesInString(got)
	if want == have {
		return ""
	}
	return diff.LineDiff(want, have)
}

// File checks got against the contents of path.
func File(path, got string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("verify: read expected: %w", err)
	}
	if d := Compare(string(b), got); d != "" {
		return &MismatchError{Path: path, Diff: d}
	}
	return nil
}
