package transport

import (
	"context"
	"mini-jsonrpc/protocol"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TCP is a transport over a single TCP connection using the protocol frame format.
//
//	goroutine-1 ──Send──┐
//	goroutine-2 ──Send──┼──→ single TCP conn ──→ peer
//	heartbeat   ──ping──┘
//
// Writes are serialized by a mutex so frames never interleave; a single pump goroutine
// reads frames, drops heartbeats and hands payloads to Recv.
type TCP struct {
	conn    net.Conn
	sending sync.Mutex // Write lock: req A's header + req B's body = corruption
	in      *inbox
	logger  *zap.Logger

	stopHeartbeat chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

// NewTCP wraps conn and starts reading. A positive heartbeat sends a keep-alive
// frame at that interval so idle connections are not reaped by the peer or middleboxes.
func NewTCP(conn net.Conn, heartbeat time.Duration, logger *zap.Logger) *TCP {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &TCP{
		conn:          conn,
		logger:        logger.With(zap.String("remote", conn.RemoteAddr().String())),
		stopHeartbeat: make(chan struct{}),
	}
	t.in = startInbox(t.readFrame)
	if heartbeat > 0 {
		go t.heartbeatLoop(heartbeat)
	}
	return t
}

// DialTCP connects to addr and wraps the connection.
func DialTCP(ctx context.Context, addr string, heartbeat time.Duration, logger *zap.Logger) (*TCP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCP(conn, heartbeat, logger), nil
}

func (t *TCP) Send(ctx context.Context, payload []byte, contentType string) error {
	ct, err := protocol.ContentTypeFor(contentType)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.in.stopped() {
		return ErrClosed
	}

	t.sending.Lock()
	defer t.sending.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(deadline)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	return protocol.Encode(t.conn, &protocol.Header{ContentType: ct, MsgType: protocol.MsgTypeData}, payload)
}

func (t *TCP) Recv(ctx context.Context) ([]byte, error) {
	return t.in.recv(ctx)
}

// readFrame returns the next payload, or nil for a heartbeat.
func (t *TCP) readFrame() ([]byte, error) {
	header, body, err := protocol.Decode(t.conn)
	if err != nil {
		return nil, err
	}
	if header.MsgType == protocol.MsgTypeHeartbeat {
		return nil, nil
	}
	if body == nil {
		body = []byte{}
	}
	return body, nil
}

// heartbeatLoop stops on Close or on the first failed write; a broken connection
// surfaces on the read side as well.
func (t *TCP) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopHeartbeat:
			return
		case <-ticker.C:
		}
		t.sending.Lock()
		err := protocol.Encode(t.conn, &protocol.Header{MsgType: protocol.MsgTypeHeartbeat}, nil)
		t.sending.Unlock()
		if err != nil {
			t.logger.Debug("heartbeat failed", zap.Error(err))
			return
		}
	}
}

// Conn returns the underlying connection.
func (t *TCP) Conn() net.Conn {
	return t.conn
}

func (t *TCP) Close() error {
	t.closeOnce.Do(func() {
		close(t.stopHeartbeat)
		t.in.shutdown()
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
