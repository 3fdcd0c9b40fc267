package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mini-jsonrpc/message"
	"mini-jsonrpc/pending"

	"go.uber.org/zap"
)

// State of the receive loop.
//
//	Running ──(end of stream | transport error | Close)──→ Draining ──(DrainAll)──→ Stopped
type State int32

const (
	Running State = iota
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// recvLoop runs in a dedicated goroutine for the whole life of the client. Reads must be
// sequential, so it is the only caller of transport.Recv.
//
// Nothing a single payload contains can stop it: bad JSON, invalid responses, responses
// without an id and responses nobody waits for are logged and skipped. Only the end of
// the stream, a transport failure or Close stop it.
func (c *Client) recvLoop(ctx context.Context) {
	defer close(c.done)

	err := c.receive(ctx)

	c.state.Store(int32(Draining))
	c.mu.Lock()
	c.termErr = err
	c.mu.Unlock()

	abandoned := c.table.DrainAll(err)
	c.logger.Debug("receive loop stopped", zap.Error(err), zap.Int("abandoned", abandoned))
	c.state.Store(int32(Stopped))
}

// receive returns the terminal error for the pending calls.
func (c *Client) receive(ctx context.Context) error {
	for {
		data, err := c.transport.Recv(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ErrClientClosed
			case errors.Is(err, io.EOF):
				return ErrTransportExhausted
			default:
				return fmt.Errorf("%w: %w", ErrTransportExhausted, err)
			}
		}
		c.dispatch(data)
	}
}

// dispatch routes every response in one payload to its caller.
func (c *Client) dispatch(data []byte) {
	responses, errs := message.ParseResponses(data)

	for _, err := range errs {
		var malformed *message.MalformedResponseError
		if errors.As(err, &malformed) {
			c.logger.Warn(malformed.Reason, zap.Error(malformed.Err), zap.ByteString("payload", malformed.Raw))
			continue
		}
		c.logger.Warn("received invalid payload", zap.Error(err))
	}

	for _, resp := range responses {
		if resp.ID.IsZero() {
			c.warnUncorrelated(resp)
			continue
		}

		outcome := pending.Success(resp.Result)
		if resp.Error != nil {
			outcome = pending.Failure(resp.Error)
		}
		if !c.table.Resolve(resp.ID.Key(), outcome) {
			c.logger.Warn("unmatched response id", zap.String("id", resp.ID.String()))
		}
	}
}

// warnUncorrelated reports a response that carries no id. Peers send those for parse
// errors and invalid requests, which usually means one of our payloads was rejected.
func (c *Client) warnUncorrelated(resp *message.Response) {
	if resp.Error != nil {
		c.logger.Warn("received error response without id",
			zap.Int("code", int(resp.Error.Code)),
			zap.String("message", resp.Error.Message),
			zap.Error(resp.Error),
		)
		return
	}
	c.logger.Warn("received response without id and without error")
}
