package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
)

// maxHTTPResponse caps a single response body.
const maxHTTPResponse = 16 << 20

// HTTPOptions configures an HTTP transport.
type HTTPOptions struct {
	Client  *http.Client      // Defaults to a pooled go-cleanhttp client
	Headers map[string]string // Added to every request
}

// HTTP is a transport where every Send is one POST and the response body, if any,
// becomes the next inbound payload. Bodies are queued without bound, so Send never
// waits on the receive side. Close ends the inbound stream once the queue is drained.
type HTTP struct {
	url     string
	client  *http.Client
	headers map[string]string

	mu     sync.Mutex
	queue  [][]byte
	closed bool
	notify chan struct{} // capacity 1, signals queue or closed changes
}

func NewHTTP(url string, opts HTTPOptions) *HTTP {
	client := opts.Client
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTP{
		url:     url,
		client:  client,
		headers: opts.Headers,
		notify:  make(chan struct{}, 1),
	}
}

func (h *HTTP) Send(ctx context.Context, payload []byte, contentType string) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponse))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	// JSON-RPC peers may report errors with a non-2xx status and a regular error
	// response in the body; only an empty failure is a transport error.
	if len(bytes.TrimSpace(body)) == 0 {
		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
		}
		return nil
	}

	h.push(body)
	return nil
}

func (h *HTTP) push(body []byte) {
	h.mu.Lock()
	h.queue = append(h.queue, body)
	h.mu.Unlock()
	h.signal()
}

func (h *HTTP) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

func (h *HTTP) Recv(ctx context.Context) ([]byte, error) {
	for {
		h.mu.Lock()
		if len(h.queue) > 0 {
			body := h.queue[0]
			h.queue[0] = nil
			h.queue = h.queue[1:]
			h.mu.Unlock()
			return body, nil
		}
		if h.closed {
			h.mu.Unlock()
			return nil, io.EOF
		}
		h.mu.Unlock()

		select {
		case <-h.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (h *HTTP) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.signal()
	h.client.CloseIdleConnections()
	return nil
}
