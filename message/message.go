// Package message defines the JSON-RPC 2.0 protocol units exchanged between client and peer.
//
// Requests, notifications and batches are built here and serialized to the JSON-RPC envelope
// by their MarshalJSON methods. Responses are produced by ParseResponses, which is a checked
// operation: a payload that is not a response never panics or aborts the caller, it comes back
// as a *MalformedResponseError next to the responses that did parse.
//
//	{"jsonrpc":"2.0","method":"add","params":[2,3],"id":"1"}   → Request
//	{"jsonrpc":"2.0","method":"log","params":["hi"]}           → Notification (no id)
//	[{...},{...}]                                              → BatchRequest
//	{"jsonrpc":"2.0","id":"1","result":5}                      → Response
package message

import (
	"encoding/json"
)

// Version is the only protocol version this package speaks.
const Version = "2.0"

// Request is a single call. A Request whose ID is absent is a notification:
// the peer never answers it.
type Request struct {
	ID     ID     // Absent for notifications
	Method string // Remote method name
	Params any    // nil (omitted), positional []any, or a keyed value (map or struct)
}

// NewRequest builds a call with a freshly allocated identifier.
func NewRequest(method string, params any) *Request {
	return &Request{ID: NewID(), Method: method, Params: params}
}

// NewNotification builds a call that expects no response.
func NewNotification(method string, params any) *Request {
	return &Request{Method: method, Params: params}
}

// IsNotification reports whether the request carries no identifier.
func (r *Request) IsNotification() bool {
	return r.ID.IsZero()
}

// wireRequest is the envelope actually written; it keeps field order stable
// and drops "id" for notifications.
type wireRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *ID    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// MarshalJSON encodes the request as a JSON-RPC 2.0 envelope.
func (r *Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{JSONRPC: Version, Method: r.Method, Params: r.Params}
	if !r.ID.IsZero() {
		id := r.ID
		w.ID = &id
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a JSON-RPC 2.0 request envelope.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w struct {
		ID     ID              `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = w.ID
	r.Method = w.Method
	r.Params = nil
	if len(w.Params) > 0 {
		r.Params = w.Params
	}
	return nil
}

// BatchRequest is an ordered group of requests sent as one wire unit.
// Responses to a batch are correlated by id, never by position.
type BatchRequest struct {
	Requests []*Request
}

// NewBatch wraps zero or more requests.
func NewBatch(requests ...*Request) *BatchRequest {
	return &BatchRequest{Requests: requests}
}

// Len returns the number of sub-requests.
func (b *BatchRequest) Len() int {
	return len(b.Requests)
}

// MarshalJSON encodes the batch as a JSON array of request envelopes.
func (b *BatchRequest) MarshalJSON() ([]byte, error) {
	if b.Requests == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Requests)
}
