package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

type echoParams struct {
	Text string `json:"text"`
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := NewServer()
	s.Register("Echo.Upper", func(_ context.Context, req json.RawMessage) (any, error) {
		var p echoParams
		if err := json.Unmarshal(req, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		return echoParams{Text: p.Text + "!"}, nil
	})
	s.Register("Echo.Missing", func(context.Context, json.RawMessage) (any, error) {
		return nil, apperrors.ErrSessionNotFound
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ln) }()
	t.Cleanup(func() {
		s.Stop()
		assert.NoError(t, <-done)
	})
	return s, ln.Addr().String()
}

func TestCallRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, addr := startServer(t)
	assert.Equal(t, 2, s.Methods())

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out echoParams
	require.NoError(t, c.Call(ctx, "Echo.Upper", echoParams{Text: "hi"}, &out))
	assert.Equal(t, "hi!", out.Text)

	require.NoError(t, c.Call(ctx, "Echo.Upper", echoParams{Text: "again"}, &out))
	assert.Equal(t, "again!", out.Text)

	s.Stop()
}

func TestCallErrors(t *testing.T) {
	_, addr := startServer(t)
	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	err = c.Call(ctx, "Echo.Nope", nil, nil)
	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 404, rpcErr.Code)

	err = c.Call(ctx, "Echo.Missing", nil, nil)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 404, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "session not found")

	err = c.Call(ctx, "Echo.Upper", "not an object", nil)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 400, rpcErr.Code)
}

func TestStopClosesIdleConnections(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, addr := startServer(t)

	c, err := Dial(addr)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Call(context.Background(), "Echo.Upper", echoParams{Text: "x"}, nil))

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on an idle connection")
	}
}

func TestResponsesKeepMarkupCharacters(t *testing.T) {
	defer goleak.VerifyNone(t)
	s, addr := startServer(t)
	defer s.Stop()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"id":"1","method":"Echo.Upper","params":{"text":"<&>"}}` + "\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","data":{"text":"<&>!"}}`+"\n", line)
}
