package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by RateLimitMiddleware when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware applies a token bucket to outbound sends: r tokens per second,
// bursts of up to burst. Sends beyond the budget fail fast with ErrRateLimited.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, payload []byte, contentType string) error {
			if !limiter.Allow() {
				return ErrRateLimited
			}
			return next(ctx, payload, contentType)
		}
	}
}

// ThrottleMiddleware is the blocking variant: sends wait for a token, or for ctx.
func ThrottleMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, payload []byte, contentType string) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return next(ctx, payload, contentType)
		}
	}
}
