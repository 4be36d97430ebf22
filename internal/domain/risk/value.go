package risk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tells how a Value was encoded upstream.
type Kind uint8

// Value kinds.
const (
	KindNone Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a numeric or categorical reading as sent by the upstream service.
// Numeric strings ("42.5") decode as numbers.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Number wraps a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Category wraps a categorical value such as "high".
func Category(s string) Value { return Value{kind: KindText, text: s} }

// Bool wraps a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Kind returns how the value was encoded.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value carries anything.
func (v Value) IsSet() bool { return v.kind != KindNone }

// Float returns the numeric form of v. Booleans map to 0/1.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber, KindBool:
		return v.num, true
	}
	return 0, false
}

// Truthy follows the usual JSON-client rules: non-zero numbers, true and
// non-empty strings are truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBool:
		return v.num != 0
	case KindText:
		return v.text != ""
	}
	return false
}

// String formats the value for display. Numbers are rounded to one decimal
// and printed without trailing zeros.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(math.Round(v.num*10)/10, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.num != 0)
	case KindText:
		return v.text
	}
	return ""
}

// UnmarshalJSON accepts numbers, strings and booleans. null leaves v unset.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = Value{}
		return nil
	case bytes.Equal(b, []byte("true")):
		*v = Bool(true)
		return nil
	case bytes.Equal(b, []byte("false")):
		*v = Bool(false)
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*v = Number(f)
			return nil
		}
		*v = Category(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("risk value: %w", err)
	}
	*v = Number(f)
	return nil
}

// MarshalJSON writes the value back in its original kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.num != 0)
	case KindText:
		return json.Marshal(v.text)
	}
	return []byte("null"), nil
}
