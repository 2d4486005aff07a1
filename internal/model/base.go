package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier. The backend sends ids as JSON numbers or
// strings; both decode to the same value.
type ID string

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(b []byte) error {
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
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids as numbers so payloads match what
// the backend sent. Anything else, such as "007" or "+5", stays a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Truth decodes to true only for the JSON literal true. Any other value,
// including 1, "true", null or a missing field, is false.
type Truth bool

func (t *Truth) UnmarshalJSON(b []byte) error {
	*t = Truth(bytes.Equal(bytes.TrimSpace(b), []byte("true")))
	return nil
}
