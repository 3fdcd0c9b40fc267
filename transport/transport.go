// Package transport defines the message boundary the client sends through and receives from,
// plus reference implementations for streams, TCP, WebSocket and HTTP.
//
// A Transport moves opaque payloads. It never inspects them: correlation, batching and
// validation all happen above it, in the client. One client owns one transport; Send may be
// called from many goroutines at once, Recv is only ever called by the client's receive loop.
//
//	caller-1 ──Send──┐
//	caller-2 ──Send──┼──→ Transport ──→ peer
//	caller-3 ──Send──┘        │
//	                          └──Recv──→ receive loop ──→ pending table ──→ caller-N wakes up
package transport

import (
	"context"
	"errors"
)

// Transport carries JSON-RPC payloads to and from a peer.
type Transport interface {
	// Send writes one payload. It returns once the transport has accepted it.
	Send(ctx context.Context, payload []byte, contentType string) error

	// Recv blocks until the next inbound payload is available. It returns io.EOF when the
	// stream ends cleanly, ctx.Err() when ctx is done, and any other error when the
	// underlying channel breaks.
	Recv(ctx context.Context) ([]byte, error)

	// Close releases the transport. Blocked Recv calls return afterwards.
	Close() error
}

// ErrClosed is returned by Send on a transport that has been closed.
var ErrClosed = errors.New("transport closed")
