package transport

import (
	"bytes"
	"context"
	"sync"
)

// inbox turns a blocking read function into a context-aware Recv.
//
// A single pump goroutine owns the read side. It hands each payload over an unbuffered
// channel, so nothing is read ahead of the consumer, and it records the read error that
// ended the stream before closing done.
type inbox struct {
	msgs     chan []byte
	done     chan struct{} // closed when the pump exits
	stop     chan struct{} // closed by shutdown
	err      error         // terminal read error, valid once done is closed
	stopOnce sync.Once
}

func startInbox(read func() ([]byte, error)) *inbox {
	in := &inbox{
		msgs: make(chan []byte),
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}
	go in.pump(read)
	return in
}

func (in *inbox) pump(read func() ([]byte, error)) {
	defer close(in.done)
	for {
		msg, err := read()
		if err != nil {
			in.err = err
			return
		}
		if msg == nil {
			continue // frame without payload, e.g. a heartbeat
		}
		// Header framings reuse their read buffer for the next frame
		msg = bytes.Clone(msg)
		select {
		case in.msgs <- msg:
		case <-in.stop:
			in.err = ErrClosed
			return
		}
	}
}

func (in *inbox) recv(ctx context.Context) ([]byte, error) {
	if in.stopped() {
		return nil, ErrClosed
	}
	select {
	case msg := <-in.msgs:
		return msg, nil
	case <-in.done:
		// Closing the reader ends the pump too; report that as ErrClosed
		if in.stopped() {
			return nil, ErrClosed
		}
		return nil, in.err
	case <-in.stop:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (in *inbox) stopped() bool {
	select {
	case <-in.stop:
		return true
	default:
		return false
	}
}

// shutdown releases blocked receivers. The pump itself exits once its read fails,
// which the owner triggers by closing the underlying reader.
func (in *inbox) shutdown() {
	in.stopOnce.Do(func() { close(in.stop) })
}
