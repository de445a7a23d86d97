// internal/bridge/websocket_test.go
package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTransport(t *testing.T, srv *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	hdr := http.Header{}
	if origin != "" {
		hdr.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSTransportRoundTrip(t *testing.T) {
	tr := NewWSTransport(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Close()

	srv := httptest.NewServer(http.HandlerFunc(tr.HandleWS))
	defer srv.Close()

	conn := dialTransport(t, srv, "https://ctrl.example.com")

	// Controller frame arrives tagged with the handshake origin.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"VISUAL_EDIT_ACTIVATE"}`)))
	select {
	case in := <-tr.Receive():
		assert.Equal(t, "https://ctrl.example.com", in.Origin)
		assert.JSONEq(t, `{"type":"VISUAL_EDIT_ACTIVATE"}`, string(in.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("inbound frame never arrived")
	}

	// Agent event reaches the connected controller.
	require.NoError(t, tr.Send(Outbound{Payload: []byte(`{"type":"VISUAL_EDIT_READY"}`), TargetOrigin: "*"}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"VISUAL_EDIT_READY"}`, string(msg))
}

func TestWSTransportTargetOriginFiltering(t *testing.T) {
	tr := NewWSTransport(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)
	defer tr.Close()

	srv := httptest.NewServer(http.HandlerFunc(tr.HandleWS))
	defer srv.Close()

	conn := dialTransport(t, srv, "https://a.example.com")

	// Wait for registration before broadcasting.
	require.Eventually(t, func() bool {
		tr.mu.RLock()
		defer tr.mu.RUnlock()
		return len(tr.clients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Pinned to a different origin: this client must not receive it.
	require.NoError(t, tr.Send(Outbound{Payload: []byte(`{"n":1}`), TargetOrigin: "https://b.example.com"}))
	// Pinned to this client's origin: delivered.
	require.NoError(t, tr.Send(Outbound{Payload: []byte(`{"n":2}`), TargetOrigin: "https://a.example.com"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(msg))
}

func TestWSTransportSendAfterClose(t *testing.T) {
	tr := NewWSTransport(nil)
	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(Outbound{Payload: []byte(`{}`)}), errTransportClosed)
	require.NoError(t, tr.Close())
}
