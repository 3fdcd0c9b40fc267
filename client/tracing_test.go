package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordingProvider records the name of every span started through it.
type recordingProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	names []string
}

func (p *recordingProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return recordingTracer{provider: p}
}

func (p *recordingProvider) spans() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.provider.mu.Lock()
	t.provider.names = append(t.provider.names, name)
	t.provider.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

func TestSpansPerOperation(t *testing.T) {
	f := newFakeTransport()
	f.serve(arith)
	tp := &recordingProvider{}
	c := newTestClient(t, f, WithTracerProvider(tp))
	ctx := testContext(t)

	_, err := c.Call(ctx, "add", []any{1, 2})
	require.NoError(t, err)
	require.NoError(t, c.Notify(ctx, "log", nil))
	_, err = c.Batch(ctx, c.Request("add", []any{1, 2}))
	require.NoError(t, err)

	assert.Equal(t, []string{"jsonrpc.call add", "jsonrpc.notify log", "jsonrpc.batch"}, tp.spans())
}
