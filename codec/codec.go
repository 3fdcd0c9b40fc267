// Package codec serializes outgoing JSON-RPC envelopes and decodes result payloads.
//
// The client never calls encoding/json directly: it goes through a Codec so that the
// content type handed to the transport and the bytes it carries always agree.
package codec

// ContentTypeJSON is the content type of JSON-RPC 2.0 payloads.
const ContentTypeJSON = "application/json"

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string
}

// Default returns the codec used when none is configured.
func Default() Codec {
	return &JSONCodec{}
}
