package verify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		expected    string
		got         string
		wantMatched bool
	}{
		{"equal", "{a=1.0/1.0/1.0}\n", "{a=1.0/1.0/1.0}\n", true},
		{"trailing newline ignored", "{a=1.0/1.0/1.0}\n", "{a=1.0/1.0/1.0}", true},
		{"value differs", "{a=1.0/1.0/1.0}", "{a=1.0/1.1/1.2}", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := Compare(tc.expected, tc.got)
			if (d == "") != tc.wantMatched {
				t.Fatalf("Compare matched=%v want %v (diff %q)", d == "", tc.wantMatched, d)
			}
		})
	}
}

func TestFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "expected.txt")
	if err := os.WriteFile(path, []byte("{a=1.0/2.0/3.0}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := File(path, "{a=1.0/2.0/3.0}"); err != nil {
		t.Fatalf("File(match) = %v", err)
	}

	err := File(path, "{a=1.0/2.5/3.0}")
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("File(mismatch) = %v, want ErrMismatch", err)
	}
	var me *MismatchError
	if !errors.As(err, &me) || !strings.Contains(me.Diff, "2.5") {
		t.Fatalf("diff missing actual line: %v", err)
	}

	if err := File(filepath.Join(t.TempDir(), "missing"), "x"); err == nil || errors.Is(err, ErrMismatch) {
		t.Fatalf("File(missing) = %v, want read error", err)
	}
}
