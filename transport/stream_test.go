package transport

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"github.com/creachadair/jrpc2/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamLineFraming(t *testing.T) {
	// client writes → toPeerW ; peer writes → fromPeerW
	toPeerR, toPeerW := io.Pipe()
	fromPeerR, fromPeerW := io.Pipe()

	s := NewStream(fromPeerR, toPeerW, channel.Line)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		assert.NoError(t, s.Send(ctx, []byte(`{"jsonrpc":"2.0","id":"1","method":"ping"}`), "application/json"))
	}()
	line, err := bufio.NewReader(toPeerR).ReadString('\n')
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"1","method":"ping"}`, line)

	go fromPeerW.Write([]byte("{\"jsonrpc\":\"2.0\",\"id\":\"1\",\"result\":\"pong\"}\n"))
	msg, err := s.Recv(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"1","result":"pong"}`, string(msg))

	// Peer hangs up → end of stream
	require.NoError(t, fromPeerW.Close())
	_, err = s.Recv(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamRecvHonoursContext(t *testing.T) {
	fromPeerR, _ := io.Pipe()
	_, toPeerW := io.Pipe()
	s := NewStream(fromPeerR, toPeerW, nil)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamClose(t *testing.T) {
	fromPeerR, _ := io.Pipe()
	_, toPeerW := io.Pipe()
	s := NewStream(fromPeerR, toPeerW, channel.LSP)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Send(context.Background(), []byte(`{}`), "application/json"), ErrClosed)
}

func TestStreamHeaderFramingKeepsEarlierPayloads(t *testing.T) {
	fromPeerR, fromPeerW := io.Pipe()
	_, toPeerW := io.Pipe()
	s := NewStream(fromPeerR, toPeerW, channel.LSP)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	peerIn, _ := io.Pipe()
	peer := channel.LSP(peerIn, fromPeerW)
	go func() {
		assert.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"aaaa","result":1}`)))
		assert.NoError(t, peer.Send([]byte(`{"jsonrpc":"2.0","id":"bbbb","result":2}`)))
	}()

	first, err := s.Recv(ctx)
	require.NoError(t, err)
	second, err := s.Recv(ctx)
	require.NoError(t, err)

	// Reading the second frame must not overwrite the first payload
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"aaaa","result":1}`, string(first))
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"bbbb","result":2}`, string(second))
}
