package client

import (
	"context"
	"errors"
	"mini-jsonrpc/message"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mini-jsonrpc/client"

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tp := c.tracerProvider
	if tp == nil {
		tp = trace.SpanFromContext(ctx).TracerProvider()
	}
	attrs = append(attrs, attribute.String("rpc.system", "jsonrpc"))
	return tp.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		var rpcErr *message.Error
		if errors.As(err, &rpcErr) {
			span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", int(rpcErr.Code)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
