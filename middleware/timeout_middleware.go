package middleware

import (
	"context"
	"errors"
	"time"
)

// ErrSendTimeout is returned when a send does not complete within the configured timeout.
var ErrSendTimeout = errors.New("send timed out")

// TimeoutMiddleware bounds how long a single send may take. It only covers handing the
// payload to the transport, not waiting for the response; callers bound that with their
// own context.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, payload []byte, contentType string) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- next(ctx, payload, contentType)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ErrSendTimeout
				}
				return ctx.Err()
			}
		}
	}
}
