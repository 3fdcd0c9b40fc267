package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/creachadair/jrpc2"
)

// Error is the error object of a JSON-RPC response. It satisfies the error interface,
// so a remote failure reaches the caller as a regular Go error:
//
//	var rpcErr *message.Error
//	if errors.As(err, &rpcErr) && rpcErr.Code == jrpc2.MethodNotFound { ... }
type Error struct {
	Code    jrpc2.Code      `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError builds an error object with the given code and message.
func NewError(c jrpc2.Code, message string) *Error {
	return &Error{Code: c, Message: message}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if len(e.Data) > 0 {
		return fmt.Sprintf("jsonrpc: %s (code %d): %s", msg, e.Code, e.Data)
	}
	return fmt.Sprintf("jsonrpc: %s (code %d)", msg, e.Code)
}

// DecodeData unmarshals the optional data member into v.
func (e *Error) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return errors.New("jsonrpc: error has no data")
	}
	return json.Unmarshal(e.Data, v)
}

// ErrMalformedResponse is matched by every *MalformedResponseError.
var ErrMalformedResponse = errors.New("malformed response")

// MalformedResponseError reports a payload, or one element of a batch payload,
// that is not a JSON-RPC response.
type MalformedResponseError struct {
	Reason string          // "received invalid JSON" or "received invalid JSON-RPC response"
	Raw    json.RawMessage // The offending bytes, possibly truncated
	Err    error           // Underlying decode or validation error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMalformedResponse) match any instance.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
