package record

import (
	"fmt"
	"math"
	"strconv"
	"unsafe"
)

// maxIntDigits bounds the integer part so a tenths value always fits in
// int64 with room for summing billions of records.
const maxIntDigits = 12

// Decoder converts a value field to integer tenths. ok is false when the
// field is not <sign?><digits>.<digit>.
type Decoder func(b []byte) (tenths int64, ok bool)

// Decoders maps numeric mode names to decoders.
var Decoders = map[string]Decoder{
	"fixed": ParseTenths,
	"float": ParseFloat,
}

// DecoderFor returns the decoder registered under name.
func DecoderFor(name string) (Decoder, error) {
	d, ok := Decoders[name]
	if !ok {
		return nil, fmt.Errorf("record: unknown numeric mode %q (want fixed or float)", name)
	}
	return d, nil
}

// ParseTenths is the integer fast path: digits accumulate into an integer
// implicitly scaled by 10.
func ParseTenths(b []byte) (int64, bool) {
	i := 0
	neg := false
	if len(b) > 0 && b[0] == '-' {
		neg = true
		i = 1
	}
	// Need at least "d.d" after the sign.
	if len(b)-i < 3 || b[len(b)-2] != '.' {
		return 0, false
	}
	intEnd := len(b) - 2
	if intEnd-i > maxIntDigits {
		return 0, false
	}
	var v int64
	for ; i < intEnd; i++ {
		c := b[i] - '0'
		if c > 9 {
			return 0, false
		}
		v = v*10 + int64(c)
	}
	c := b[len(b)-1] - '0'
	if c > 9 {
		return 0, false
	}
	v = v*10 + int64(c)
	if neg {
		v = -v
	}
	return v, true
}

// ParseFloat is the generic path: the field is parsed as a float64 and
// quantized to tenths. The accepted syntax is the same as ParseTenths.
func ParseFloat(b []byte) (int64, bool) {
	if !wellFormed(b) {
		return 0, false
	}
	// b is only read for the duration of the call.
	f, err := strconv.ParseFloat(unsafe.String(unsafe.SliceData(b), len(b)), 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 10)), true
}

// wellFormed reports whether b matches -?[0-9]{1,maxIntDigits}\.[0-9].
func wellFormed(b []byte) bool {
	i := 0
	if len(b) > 0 && b[0] == '-' {
		i = 1
	}
	if len(b)-i < 3 || len(b)-2-i > maxIntDigits || b[len(b)-2] != '.' {
		return false
	}
	for j := i; j < len(b); j++ {
		if j == len(b)-2 {
			continue
		}
		if b[j] < '0' || b[j] > '9' {
			return false
		}
	}
	return true
}
