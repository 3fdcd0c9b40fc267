package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mini-jsonrpc/message"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchResultsInRequestOrder(t *testing.T) {
	f := newFakeTransport()
	f.serve(arith)
	c := newTestClient(t, f)

	results, err := c.Batch(testContext(t),
		c.Request("add", []any{1, 2}),
		c.Request("subtract", []any{10, 4}),
		message.NewNotification("log", []any{"hello"}),
		c.Request("divide", []any{1, 0}),
	)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.JSONEq(t, `3`, string(results[0].Result))
	assert.NoError(t, results[0].Err)
	assert.JSONEq(t, `6`, string(results[1].Result))
	assert.Equal(t, BatchResult{}, results[2])

	var rpcErr *message.Error
	require.ErrorAs(t, results[3].Err, &rpcErr)
	assert.Equal(t, jrpc2.MethodNotFound, rpcErr.Code)

	require.Error(t, results.Err())
	assert.ErrorAs(t, results.Err(), &rpcErr)
	assert.Equal(t, 0, c.Pending())
}

func TestBatchIsOneWrite(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	ctx := testContext(t)

	done := make(chan error, 1)
	go func() {
		_, err := c.Batch(ctx, c.Request("add", []any{1, 2}), message.NewNotification("log", nil))
		done <- err
	}()

	payload, err := f.next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"jsonrpc":"2.0","id":"1","method":"add","params":[1,2]},
		{"jsonrpc":"2.0","method":"log"}
	]`, string(payload))
	assert.Equal(t, 1, c.Pending())

	f.push(`[{"jsonrpc":"2.0","id":"1","result":3}]`)
	require.NoError(t, <-done)
	assert.Empty(t, f.sent)
}

func TestEmptyBatchSendsNothing(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	results, err := c.Batch(testContext(t))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, results.Err())
	assert.Empty(t, f.sent)
}

func TestBatchOfNotificationsWaitsForNothing(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	results, err := c.Batch(testContext(t), message.NewNotification("a", nil), message.NewNotification("b", nil))
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 0, c.Pending())
	assert.Len(t, f.sent, 1)
}

func TestBatchDuplicateIDRegistersNothing(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	same := message.StringID("x")
	_, err := c.Batch(testContext(t),
		&message.Request{ID: message.StringID("y"), Method: "a"},
		&message.Request{ID: same, Method: "b"},
		&message.Request{ID: same, Method: "c"},
	)
	require.Error(t, err)
	assert.Equal(t, 0, c.Pending())
	assert.Empty(t, f.sent)
}

func TestBatchSendFailureRemovesEntries(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	broken := errors.New("broken pipe")
	f.failSends(broken)

	_, err := c.Batch(testContext(t), c.Request("add", []any{1, 2}), c.Request("add", []any{3, 4}))
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 0, c.Pending())
}

func TestBatchPartialReplyThenExhaustion(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)
	ctx := testContext(t)

	type batchReply struct {
		results BatchResults
		err     error
	}
	done := make(chan batchReply, 1)
	go func() {
		results, err := c.Batch(ctx, c.Request("add", []any{1, 2}), c.Request("add", []any{3, 4}))
		done <- batchReply{results, err}
	}()
	waitPending(t, c, 2)

	f.push(`{"jsonrpc":"2.0","id":"2","result":7}`)
	f.end(io.EOF)

	reply := <-done
	assert.ErrorIs(t, reply.err, ErrTransportExhausted)
	require.Len(t, reply.results, 2)
	assert.ErrorIs(t, reply.results[0].Err, ErrTransportExhausted)
	assert.JSONEq(t, `7`, string(reply.results[1].Result))
}

func TestBatchCancelRemovesRemainingEntries(t *testing.T) {
	f := newFakeTransport()
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(testContext(t))
	done := make(chan error, 1)
	go func() {
		_, err := c.Batch(ctx, c.Request("a", nil), c.Request("b", nil), c.Request("c", nil))
		done <- err
	}()
	waitPending(t, c, 3)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, c.Pending())
}

func TestBatchResultsErrAggregates(t *testing.T) {
	results := BatchResults{
		{Result: json.RawMessage(`1`)},
		{Err: errors.New("first")},
		{Err: errors.New("second")},
	}
	err := results.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request 1: first")
	assert.Contains(t, err.Error(), "request 2: second")

	assert.NoError(t, BatchResults{{Result: json.RawMessage(`1`)}}.Err())
}
