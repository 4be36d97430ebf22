package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Label is a server-supplied timestamp. It is kept opaque: strings are used
// as-is and numbers keep their literal text.
type Label string

// UnmarshalJSON accepts a JSON string or number.
func (l *Label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("label must be a string or number: %w", err)
	}
	*l = Label(n.String())
	return nil
}

// String returns the label text.
func (l Label) String() string { return string(l) }
