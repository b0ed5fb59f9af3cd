package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an entity identifier on the wire. Backends emit either JSON strings
// or integers; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}
