package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Response is the reply to a Request. Exactly one of Result and Error is set.
// A Response whose ID is absent cannot be correlated to any caller; peers send
// those for parse errors and invalid requests.
type Response struct {
	ID     ID
	Result json.RawMessage
	Error  *Error
}

// NewResult builds a successful response; result is marshalled immediately.
func NewResult(id ID, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Response{ID: id, Result: raw}, nil
}

// NewErrorResponse builds a failed response.
func NewErrorResponse(id ID, e *Error) *Response {
	return &Response{ID: id, Error: e}
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// MarshalJSON encodes the response envelope. An absent id encodes as null.
func (r *Response) MarshalJSON() ([]byte, error) {
	w := wireResponse{JSONRPC: Version, ID: r.ID, Error: r.Error}
	if r.Error == nil {
		w.Result = r.Result
		if len(w.Result) == 0 {
			w.Result = json.RawMessage("null")
		}
	}
	return json.Marshal(w)
}

// responseSchema is the JSON-RPC 2.0 response object. Older peers send "error": null
// next to a result, which is accepted as a success.
const responseSchema = `{
	"type": "object",
	"required": ["jsonrpc"],
	"properties": {
		"jsonrpc": {"const": "2.0"},
		"id": {"type": ["string", "integer", "null"]},
		"error": {
			"type": ["object", "null"],
			"required": ["code", "message"],
			"properties": {
				"code": {"type": "integer"},
				"message": {"type": "string"}
			}
		}
	},
	"oneOf": [
		{
			"required": ["result"],
			"properties": {"error": {"type": "null"}}
		},
		{
			"required": ["error"],
			"not": {"required": ["result"]},
			"properties": {"error": {"type": "object"}}
		}
	]
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
	})
	return schema, schemaErr
}

const maxRawInError = 256

func truncate(raw []byte) json.RawMessage {
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError]
	}
	return append(json.RawMessage(nil), raw...)
}

// ParseResponses decodes one inbound payload into zero or more responses.
//
// A payload is either a single response object or an array of them (a batch reply).
// Elements are validated independently: a bad element yields a *MalformedResponseError
// and does not affect its siblings. Empty payloads yield nothing at all.
func ParseResponses(data []byte) ([]*Response, []error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var elements []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, []error{&MalformedResponseError{Reason: "received invalid JSON", Raw: truncate(data), Err: err}}
		}
	} else {
		if !json.Valid(data) {
			return nil, []error{&MalformedResponseError{Reason: "received invalid JSON", Raw: truncate(data)}}
		}
		elements = []json.RawMessage{data}
	}

	var (
		responses []*Response
		errs      []error
	)
	for _, element := range elements {
		resp, err := parseResponse(element)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		responses = append(responses, resp)
	}
	return responses, errs
}

func parseResponse(raw json.RawMessage) (*Response, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(string(raw)))
	if err != nil {
		return nil, &MalformedResponseError{Reason: "received invalid JSON", Raw: truncate(raw), Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, &MalformedResponseError{
			Reason: "received invalid JSON-RPC response",
			Raw:    truncate(raw),
			Err:    fmt.Errorf("%s", strings.Join(msgs, "; ")),
		}
	}

	var w wireResponse
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &MalformedResponseError{Reason: "received invalid JSON-RPC response", Raw: truncate(raw), Err: err}
	}
	resp := &Response{ID: w.ID, Error: w.Error}
	if w.Error == nil {
		resp.Result = w.Result
		if len(resp.Result) == 0 {
			// "result": null decodes to an empty RawMessage on some paths
			resp.Result = json.RawMessage("null")
		}
	}
	return resp, nil
}
