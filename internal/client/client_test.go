package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/securechat-go/internal/model"
)

// silentServer upgrades the websocket and drains inbound frames
// without ever replying
func silentServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = ws.Close() }()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func dialTest(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"), Handlers{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCredentialRequestsTimeOutWithSyntheticResponse(t *testing.T) {
	c := dialTest(t, silentServer(t))
	c.RequestTimeout = 50 * time.Millisecond

	resp := c.Register("alice", "secret1")
	assert.False(t, resp.Success)
	assert.Equal(t, "Server timeout", resp.Message)

	resp = c.Login("alice", "secret1")
	assert.False(t, resp.Success)
	assert.Equal(t, "Server timeout", resp.Message)
}

func TestCheckUserTimesOutAsNotReachable(t *testing.T) {
	c := dialTest(t, silentServer(t))
	c.RequestTimeout = 50 * time.Millisecond

	assert.Equal(t, model.UserCheckResponsePayload{Exists: false}, c.CheckUser("bob"))
}

func TestCloseResolvesRequestInFlight(t *testing.T) {
	c := dialTest(t, silentServer(t))
	c.RequestTimeout = time.Minute

	done := make(chan model.ResponsePayload, 1)
	go func() {
		done <- c.Register("alice", "secret1")
	}()

	// Give the request time to go out before tearing down the client
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case resp := <-done:
		assert.False(t, resp.Success)
		assert.Equal(t, "Server timeout", resp.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("register still suspended after the client was closed")
	}
}
