package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mini-jsonrpc/message"
	"mini-jsonrpc/pending"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
)

// BatchResult is the outcome of one sub-request of a batch. Notifications leave it zero.
type BatchResult struct {
	Result json.RawMessage
	Err    error
}

// BatchResults is ordered like the requests of the batch.
type BatchResults []BatchResult

// Err aggregates the failed sub-requests, or returns nil when all of them succeeded.
func (r BatchResults) Err() error {
	var errs *multierror.Error
	for i, res := range r {
		if res.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("request %d: %w", i, res.Err))
		}
	}
	return errs.ErrorOrNil()
}

// Batch sends reqs as one batch. See SendBatch.
func (c *Client) Batch(ctx context.Context, reqs ...*message.Request) (BatchResults, error) {
	return c.SendBatch(ctx, message.NewBatch(reqs...))
}

// SendBatch writes the whole batch with a single transport send and waits for every
// sub-request that has an id. Results come back in request order whatever order the
// responses arrive in; a failed sub-request does not stop the others, its error is
// reported in its own BatchResult.
//
// The returned error is non-nil only when the batch could not be sent, when ctx ended,
// or when the receive loop stopped before every response arrived. In the last case the
// results are returned as well, with the unresolved entries carrying the loop's error.
//
// An empty batch returns an empty result without touching the transport: JSON-RPC peers
// answer "[]" with an Invalid Request error that nobody could be correlated with.
func (c *Client) SendBatch(ctx context.Context, batch *message.BatchRequest) (results BatchResults, err error) {
	results = make(BatchResults, batch.Len())
	if batch.Len() == 0 {
		return results, nil
	}

	ctx, span := c.startSpan(ctx, "jsonrpc.batch", attribute.Int("rpc.jsonrpc.batch_size", batch.Len()))
	defer func() { endSpan(span, err) }()

	handles := make([]*pending.Handle, batch.Len())
	for i, req := range batch.Requests {
		if req.IsNotification() {
			continue
		}
		h, err := c.register(req.ID)
		if err != nil {
			c.unregister(handles)
			return nil, err
		}
		handles[i] = h
	}

	if err := c.write(ctx, batch); err != nil {
		c.unregister(handles)
		return nil, err
	}

	var loopErr error
	for i, h := range handles {
		if h == nil {
			continue
		}
		result, err := c.await(ctx, h)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			c.unregister(handles[i+1:])
			return nil, err
		}
		results[i] = BatchResult{Result: result, Err: err}
		if errors.Is(err, ErrTransportExhausted) || errors.Is(err, ErrClientClosed) {
			loopErr = err
		}
	}
	return results, loopErr
}

// unregister removes the entries of a batch that will not be awaited.
func (c *Client) unregister(handles []*pending.Handle) {
	for _, h := range handles {
		if h != nil {
			c.table.Remove(h.ID())
		}
	}
}
