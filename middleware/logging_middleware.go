package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every send at debug level and failed sends at warn level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, payload []byte, contentType string) error {
			start := time.Now()
			err := next(ctx, payload, contentType)
			fields := []zap.Field{
				zap.Int("bytes", len(payload)),
				zap.String("content_type", contentType),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("send failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("sent payload", fields...)
			return nil
		}
	}
}
