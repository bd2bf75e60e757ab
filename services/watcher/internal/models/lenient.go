package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// StationID decodes from either a JSON string or a JSON number. Integral
// numbers are written without a fraction or exponent, so 42, 42.0 and "42"
// all decode to the same id.
type StationID string

func (id *StationID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StationID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = StationID(canonicalNumber(n))
	return nil
}

func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := n.Float64()
	if err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}

// Count is a non-negative counter that never fails to decode: values that
// are not numbers (or numeric strings) become 0.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	*c = Count(ParseCount(b))
	return nil
}

// ParseCount coerces a raw JSON value to a non-negative integer.
// Fractions truncate toward zero; negative, non-finite and unparsable values yield 0.
func ParseCount(raw []byte) int {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// Flag decodes GBFS booleans, which older feeds publish as 0/1.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}
