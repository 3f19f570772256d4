package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Numeric is a numeric-or-empty input field such as a subject's credits.
// The zero value is empty ("not yet entered").
type Numeric struct {
	raw string
}

// Number returns a Numeric holding v.
func Number(v float64) Numeric {
	return Numeric{raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// ParseNumeric wraps raw user input. Whitespace-only input is empty.
func ParseNumeric(raw string) Numeric {
	return Numeric{raw: strings.TrimSpace(raw)}
}

// IsEmpty reports whether no value has been entered.
func (n Numeric) IsEmpty() bool {
	return n.raw == ""
}

// Float returns the numeric value. ok is false for empty input and for
// input that is not a finite number.
func (n Numeric) Float() (v float64, ok bool) {
	if n.IsEmpty() {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// IsZero reports whether a value was entered and it equals 0.
// A zero credit value marks a failed (reappear) subject.
func (n Numeric) IsZero() bool {
	v, ok := n.Float()
	return ok && v == 0
}

// String returns the raw input.
func (n Numeric) String() string {
	return n.raw
}

// MarshalJSON encodes valid numbers as JSON numbers, empty as "" and
// anything else as the original text.
func (n Numeric) MarshalJSON() ([]byte, error) {
	if v, ok := n.Float(); ok {
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	}
	return json.Marshal(n.raw)
}

// UnmarshalJSON accepts a number, a string or null. Other shapes decode as empty.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		n.raw = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			n.raw = ""
			return nil
		}
		*n = ParseNumeric(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		n.raw = string(data)
	default:
		n.raw = ""
	}
	return nil
}
