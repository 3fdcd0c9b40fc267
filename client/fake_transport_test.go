package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mini-jsonrpc/message"
	"sync"

	"github.com/creachadair/jrpc2"
)

// event is one inbound payload, or the error that ends the stream.
type event struct {
	data []byte
	err  error
}

// fakeTransport records every payload sent and replays scripted inbound events in order.
type fakeTransport struct {
	sent    chan []byte
	inbound chan event

	mu      sync.Mutex
	sendErr error

	closed    chan struct{}
	closeOnce sync.Once
	closes    int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:    make(chan []byte, 2048),
		inbound: make(chan event, 2048),
		closed:  make(chan struct{}),
	}
}

func (f *fakeTransport) Send(ctx context.Context, payload []byte, contentType string) error {
	f.mu.Lock()
	err := f.sendErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case f.sent <- append([]byte(nil), payload...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case ev := <-f.inbound:
		return ev.data, ev.err
	case <-f.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) failSends(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) push(data string) {
	f.inbound <- event{data: []byte(data)}
}

func (f *fakeTransport) pushResponses(resps ...*message.Response) {
	var data []byte
	var err error
	if len(resps) == 1 {
		data, err = json.Marshal(resps[0])
	} else {
		data, err = json.Marshal(resps)
	}
	if err != nil {
		panic(err)
	}
	f.inbound <- event{data: data}
}

// end finishes the inbound stream with err (io.EOF for a clean end).
func (f *fakeTransport) end(err error) {
	f.inbound <- event{err: err}
}

// next returns the next payload the client sent.
func (f *fakeTransport) next(ctx context.Context) ([]byte, error) {
	select {
	case p := <-f.sent:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decodeRequests reads a single request or a batch.
func decodeRequests(payload []byte) ([]*message.Request, bool, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty payload")
	}
	if trimmed[0] == '[' {
		var reqs []*message.Request
		err := json.Unmarshal(trimmed, &reqs)
		return reqs, true, err
	}
	var req message.Request
	err := json.Unmarshal(trimmed, &req)
	return []*message.Request{&req}, false, err
}

// handlerFunc answers one request; a nil response means no answer.
type handlerFunc func(req *message.Request) *message.Response

// serve plays a peer: it answers every payload the client sends until the transport
// is closed. Batches are answered in reverse order to exercise id correlation.
func (f *fakeTransport) serve(handle handlerFunc) {
	go func() {
		for {
			var payload []byte
			select {
			case payload = <-f.sent:
			case <-f.closed:
				return
			}
			reqs, batch, err := decodeRequests(payload)
			if err != nil {
				continue
			}
			var resps []*message.Response
			for i := len(reqs) - 1; i >= 0; i-- {
				if reqs[i].IsNotification() {
					continue
				}
				if resp := handle(reqs[i]); resp != nil {
					resps = append(resps, resp)
				}
			}
			switch {
			case len(resps) == 0:
			case batch:
				data, _ := json.Marshal(resps)
				f.inbound <- event{data: data}
			default:
				f.pushResponses(resps[0])
			}
		}
	}()
}

// arith answers "add" and "subtract" over two positional numbers and rejects anything else.
func arith(req *message.Request) *message.Response {
	if req.Method != "add" && req.Method != "subtract" {
		return message.NewErrorResponse(req.ID, message.NewError(jrpc2.MethodNotFound, "Method not found"))
	}
	var args []float64
	raw, _ := req.Params.(json.RawMessage)
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
		return message.NewErrorResponse(req.ID, message.NewError(jrpc2.InvalidParams, "Invalid params"))
	}
	result := args[0] + args[1]
	if req.Method == "subtract" {
		result = args[0] - args[1]
	}
	resp, _ := message.NewResult(req.ID, result)
	return resp
}
