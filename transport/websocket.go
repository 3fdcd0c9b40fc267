package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/coder/websocket"
)

// DefaultWebSocketReadLimit caps a single inbound message.
const DefaultWebSocketReadLimit = 4 << 20

// WebSocket is a transport where every JSON-RPC payload is one text message.
//
// Recv passes its context to the websocket reader, and the websocket library closes the
// connection when that context is cancelled. The client only cancels Recv when it is
// closing, so this costs nothing in practice.
type WebSocket struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	conn.SetReadLimit(DefaultWebSocketReadLimit)
	return &WebSocket{conn: conn}
}

// DialWebSocket opens a connection to url.
func DialWebSocket(ctx context.Context, url string, opts *websocket.DialOptions) (*WebSocket, error) {
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

func (w *WebSocket) Send(ctx context.Context, payload []byte, contentType string) error {
	if w.closed.Load() {
		return ErrClosed
	}
	return w.conn.Write(ctx, websocket.MessageText, payload)
}

func (w *WebSocket) Recv(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	if err == nil {
		return data, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if w.closed.Load() {
		return nil, ErrClosed
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil, io.EOF
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	return nil, err
}

func (w *WebSocket) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := w.conn.Close(websocket.StatusNormalClosure, "")
	// Already torn down by a cancelled Read or by the peer
	if errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
		return nil
	}
	return err
}
