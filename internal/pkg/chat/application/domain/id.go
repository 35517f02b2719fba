package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque identifier for users, conversations and messages.
// Backends hand out either integers or strings; both are kept as text here.
// On the wire a canonical decimal integer is written as a JSON number so that
// numeric ids round-trip the way the backend sent them.
type ID string

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// MarshalJSON writes canonical integers as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isCanonicalInt() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("chat: decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("chat: decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// isCanonicalInt reports whether the id is a base-10 integer without sign
// noise or leading zeros ("13", "-4", "0" but not "013" or "+1").
func (id ID) isCanonicalInt() bool {
	s := string(id)
	if s == "" {
		return false
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return false
	}
	digits := s
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if digits[0] == '+' {
		return false
	}
	return len(digits) == 1 || digits[0] != '0'
}
