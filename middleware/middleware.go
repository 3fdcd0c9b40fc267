// Package middleware wraps the client's outbound path. Every payload the client writes,
// whether a call, a notification or a batch, goes through the chain exactly once before
// it reaches the transport.
package middleware

import (
	"context"
)

// SendFunc writes one encoded payload.
type SendFunc func(ctx context.Context, payload []byte, contentType string) error

type Middleware func(next SendFunc) SendFunc

// Chain composes middlewares; the first one is the outermost.
//
//	Chain(A, B, C)(send) → A(B(C(send)))
func Chain(middlewares ...Middleware) Middleware {
	return func(next SendFunc) SendFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
