package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID is a JSON-RPC request identifier: a string or an integer.
//
// It stores the canonical JSON text of the value ("abc" keeps its quotes, 10 does not),
// so the string "1" and the number 1 are different identifiers, exactly as on the wire.
// The zero value means "absent" and marks a notification.
type ID struct {
	raw string
}

// NewID allocates a fresh random identifier (a UUID string).
func NewID() ID {
	return StringID(uuid.NewString())
}

// StringID builds a string identifier.
func StringID(s string) ID {
	b, _ := json.Marshal(s) // marshalling a string never fails
	return ID{raw: string(b)}
}

// IntID builds a numeric identifier.
func IntID(n int64) ID {
	return ID{raw: strconv.FormatInt(n, 10)}
}

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool {
	return id.raw == ""
}

// Key returns the canonical form used to correlate requests and responses.
func (id ID) Key() string {
	return id.raw
}

// String returns the identifier without JSON quoting, for logs.
func (id ID) String() string {
	if len(id.raw) > 1 && id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(id.raw), &s); err == nil {
			return s
		}
	}
	return id.raw
}

// MarshalJSON encodes the identifier. An absent identifier encodes as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

// UnmarshalJSON accepts a string, a number or null (which leaves the identifier absent).
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = StringID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid id %s: must be a string or a number", data)
		}
		*id = ID{raw: n.String()}
	}
	return nil
}

// IDGenerator allocates identifiers for outgoing requests.
type IDGenerator func() ID

// Sequence returns a generator producing the string identifiers "1", "2", "3", ...
// It is safe for concurrent use.
func Sequence() IDGenerator {
	var seq atomic.Uint64
	return func() ID {
		return StringID(strconv.FormatUint(seq.Add(1), 10))
	}
}
