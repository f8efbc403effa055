package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend identifier. The backend emits both numeric and string ids,
// so unmarshaling accepts either and normalizes to a string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// Text is row content. Most rows carry a string, but function results are
// sometimes stored as a JSON object; those are kept as their raw JSON text.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decoding content: %w", err)
		}
		*t = Text(s)
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return fmt.Errorf("decoding content: %w", err)
	}
	*t = Text(buf.String())
	return nil
}
