// Package format renders per-key summaries as
// "{k1=min/mean/max, k2=min/mean/max}".
package format

import (
	"strconv"
	"strings"

	"rowstats/internal/aggregate"
)

// Entry is one rendered key.
type Entry struct {
	Key     string
	Summary aggregate.Summary
}

// Render writes entries in the order given. pipeline.Entries returns them in
// byte-wise key order.
func Render(entries []Entry) string {
	var b strings.Builder
	b.Grow(len(entries) * 32)
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(Tenths(e.Summary.Min))
		b.WriteByte('/')
		b.WriteString(Tenths(e.Summary.Mean()))
		b.WriteByte('/')
		b.WriteString(Tenths(e.Summary.Max))
	}
	b.WriteByte('}')
	return b.String()
}

// Tenths formats v/10 with exactly one fractional digit. Zero never carries
// a sign.
func Tenths(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	buf := make([]byte, 0, 24)
	if neg {
		buf = append(buf, '-')
	}
	buf = strconv.AppendInt(buf, v/10, 10)
	buf = append(buf, '.', byte('0'+v%10))
	return string(buf)
}
