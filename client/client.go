// Package client implements a correlated, asynchronous JSON-RPC 2.0 client.
//
// Any number of goroutines share one Client and one Transport. Each call registers a
// handle under its request id, writes the request, and waits. A single receive loop
// reads every inbound payload and completes the handle whose id the response carries,
// so responses may arrive in any order:
//
//	goroutine-1 ──Call(id=a)──┐
//	goroutine-2 ──Call(id=b)──┼──→ Transport ──→ peer
//	goroutine-3 ──Batch(c,d)──┘
//
//	recvLoop: ←── {"id":"b",...} → table.Resolve("b") → goroutine-2 wakes up
//
// When the transport ends, or the client is closed, the loop fails every handle still
// pending, so no caller waits forever.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"mini-jsonrpc/codec"
	"mini-jsonrpc/message"
	"mini-jsonrpc/middleware"
	"mini-jsonrpc/pending"
	"mini-jsonrpc/transport"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrTransportExhausted is returned to callers still waiting when the transport's
	// inbound stream ends. If the stream broke with an error, that error is wrapped too.
	ErrTransportExhausted = errors.New("transport exhausted")
	// ErrClientClosed is returned to callers still waiting when Close runs, and by
	// every call made afterwards.
	ErrClientClosed = pending.ErrClosed
)

// Client is safe for concurrent use.
type Client struct {
	transport      transport.Transport // Owned: closed by Close
	codec          codec.Codec
	send           middleware.SendFunc // Middleware chain ending in transport.Send
	table          *pending.Table
	nextID         message.IDGenerator
	logger         *zap.Logger
	tracerProvider trace.TracerProvider

	state   atomic.Int32 // State of the receive loop
	cancel  context.CancelFunc
	done    chan struct{} // Closed when the receive loop has stopped
	mu      sync.Mutex
	termErr error // Why the receive loop stopped, guarded by mu

	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a client that owns t and starts its receive loop.
func New(t transport.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:      t,
		codec:          o.codec,
		send:           middleware.Chain(o.middlewares...)(t.Send),
		table:          pending.NewTable(),
		nextID:         o.nextID,
		logger:         o.logger,
		tracerProvider: o.tracerProvider,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	c.state.Store(int32(Running))
	go c.recvLoop(ctx)
	return c
}

// With runs fn with a new client and closes it on every exit path, including panics.
// The error from fn takes precedence over the error from Close.
func With(t transport.Transport, fn func(*Client) error, opts ...Option) (err error) {
	c := New(t, opts...)
	defer func() {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(c)
}

// Request builds a call to method with an id from the client's generator.
// Use it to assemble batches.
func (c *Client) Request(method string, params any) *message.Request {
	return &message.Request{ID: c.nextID(), Method: method, Params: params}
}

// Call invokes method and waits for its result. params is nil, a positional []any,
// or a keyed value (map or struct). A remote failure is returned as a *message.Error.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.Send(ctx, c.Request(method, params))
}

// CallInto is Call followed by decoding the result into out. A nil out discards it.
func (c *Client) CallInto(ctx context.Context, out any, method string, params any) error {
	result, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.codec.Decode(result, out)
}

// Notify sends a notification. It returns once the transport has accepted it;
// nothing is registered and nothing is awaited.
func (c *Client) Notify(ctx context.Context, method string, params any) (err error) {
	ctx, span := c.startSpan(ctx, "jsonrpc.notify "+method, attribute.String("rpc.method", method))
	defer func() { endSpan(span, err) }()

	return c.write(ctx, message.NewNotification(method, params))
}

// Send writes a pre-built request. For a notification it returns (nil, nil) right after
// the write; otherwise it waits like Call. The request id must not be in flight already,
// or Send fails with pending.ErrDuplicateID.
func (c *Client) Send(ctx context.Context, req *message.Request) (result json.RawMessage, err error) {
	attrs := []attribute.KeyValue{attribute.String("rpc.method", req.Method)}
	if !req.IsNotification() {
		attrs = append(attrs, attribute.String("rpc.jsonrpc.request_id", req.ID.String()))
	}
	ctx, span := c.startSpan(ctx, "jsonrpc.call "+req.Method, attrs...)
	defer func() { endSpan(span, err) }()

	if req.IsNotification() {
		return nil, c.write(ctx, req)
	}

	h, err := c.register(req.ID)
	if err != nil {
		return nil, err
	}
	if err := c.write(ctx, req); err != nil {
		c.table.Remove(h.ID())
		return nil, err
	}
	return c.await(ctx, h)
}

// register adds a table entry, translating a closed table into the loop's terminal error.
func (c *Client) register(id message.ID) (*pending.Handle, error) {
	h, err := c.table.Register(id.Key())
	if errors.Is(err, pending.ErrClosed) {
		return nil, c.terminalErr()
	}
	return h, err
}

// write encodes v and passes it through the send chain: exactly one transport write.
func (c *Client) write(ctx context.Context, v any) error {
	if c.closing.Load() {
		return ErrClientClosed
	}
	payload, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	return c.send(ctx, payload, c.codec.ContentType())
}

// await waits for h, for the receive loop to stop, or for ctx.
//
// A caller whose context ends removes its own entry, so the table never holds entries
// nobody waits on. A response that arrives later is logged as unmatched.
func (c *Client) await(ctx context.Context, h *pending.Handle) (json.RawMessage, error) {
	select {
	case <-h.Done():
		o := h.Outcome()
		return o.Result, o.Err
	case <-c.done:
		// The loop drains the table before closing done, so h is normally complete here
		select {
		case <-h.Done():
			o := h.Outcome()
			return o.Result, o.Err
		default:
			return nil, c.terminalErr()
		}
	case <-ctx.Done():
		c.table.Remove(h.ID())
		return nil, ctx.Err()
	}
}

// Pending returns the number of calls waiting for a response.
func (c *Client) Pending() int {
	return c.table.Len()
}

// State reports where the receive loop is in its lifecycle.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Done is closed once the receive loop has stopped and every pending call has been failed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the receive loop stopped, or nil while it is running.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.terminalErr()
	default:
		return nil
	}
}

func (c *Client) terminalErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.termErr == nil {
		return ErrClientClosed
	}
	return c.termErr
}

// Close stops the receive loop, fails every pending call with ErrClientClosed, waits for
// the loop to exit and then closes the transport. It is idempotent: later calls return
// the result of the first one.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.cancel()
		<-c.done
		c.closeErr = c.transport.Close()
		c.logger.Debug("client closed", zap.Error(c.closeErr))
	})
	return c.closeErr
}
