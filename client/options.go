package client

import (
	"mini-jsonrpc/codec"
	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	codec          codec.Codec
	nextID         message.IDGenerator
	middlewares    []middleware.Middleware
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
		codec:  codec.Default(),
		nextID: message.NewID,
	}
}

// WithLogger sets the logger used for receive-loop warnings and lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec replaces the JSON codec used to encode requests and decode results.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithIDGenerator replaces the UUID identifiers allocated by Call and Request.
func WithIDGenerator(gen message.IDGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.nextID = gen
		}
	}
}

// WithMiddleware appends middlewares to the send chain. The first one is the outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// WithTracerProvider fixes the provider used for call spans. Without it, spans come
// from the provider of the span already in the caller's context.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
