package transport

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/creachadair/jrpc2/channel"
	"github.com/hashicorp/go-multierror"
)

// Stream is a transport over a pair of byte streams (pipes, stdio, a subprocess),
// framed by a jrpc2 channel framing: channel.Line for newline-delimited JSON,
// channel.LSP or channel.Header(mime) for Content-Length headers.
type Stream struct {
	ch      channel.Channel
	r       io.Reader
	in      *inbox
	sending sync.Mutex // Channel implementations do not promise concurrent Send

	closeOnce sync.Once
	closeErr  error
}

// NewStream frames r and wc with framing (channel.Line when nil) and starts reading.
// If r is also an io.Closer it is closed together with wc.
func NewStream(r io.Reader, wc io.WriteCloser, framing channel.Framing) *Stream {
	if framing == nil {
		framing = channel.Line
	}
	ch := framing(r, wc)
	return &Stream{
		ch: ch,
		r:  r,
		in: startInbox(ch.Recv),
	}
}

// Stdio is a Stream over the process's standard input and output.
func Stdio(framing channel.Framing) *Stream {
	return NewStream(os.Stdin, os.Stdout, framing)
}

func (s *Stream) Send(ctx context.Context, payload []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.in.stopped() {
		return ErrClosed
	}

	s.sending.Lock()
	defer s.sending.Unlock()
	return s.ch.Send(payload)
}

func (s *Stream) Recv(ctx context.Context) ([]byte, error) {
	return s.in.recv(ctx)
}

func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.in.shutdown()

		var errs *multierror.Error
		if err := s.ch.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		if rc, ok := s.r.(io.Closer); ok {
			if err := rc.Close(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
		s.closeErr = errs.ErrorOrNil()
	})
	return s.closeErr
}
