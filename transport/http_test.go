package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPQueuesResponseBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		if string(body) == `{"notify":true}` {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":5}`))
	}))
	defer srv.Close()

	tr := NewHTTP(srv.URL, HTTPOptions{Headers: map[string]string{"Authorization": "secret"}})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Send(ctx, []byte(`{"notify":true}`), "application/json"))
	require.NoError(t, tr.Send(ctx, []byte(`{"call":true}`), "application/json"))

	msg, err := tr.Recv(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"1","result":5}`, string(msg))

	// Nothing else queued: Recv waits until the context gives up
	short, cancelShort := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancelShort()
	_, err = tr.Recv(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tr.Close())
	_, err = tr.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, tr.Send(ctx, []byte(`{}`), "application/json"), ErrClosed)
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/with-body" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()

	bare := NewHTTP(srv.URL+"/bare", HTTPOptions{})
	assert.Error(t, bare.Send(ctx, []byte(`{}`), "application/json"))

	withBody := NewHTTP(srv.URL+"/with-body", HTTPOptions{})
	require.NoError(t, withBody.Send(ctx, []byte(`{}`), "application/json"))
	msg, err := withBody.Recv(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(msg), "Parse error")
}
