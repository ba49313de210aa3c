package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// TestHub_Stream tests greeting and broadcast delivery to a real client.
func TestHub_Stream(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv.URL)

	greeting := readMessage(t, conn)
	assert.Equal(t, "client.connected", greeting.Type)
	assert.NotEmpty(t, greeting.ID)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(Message{Type: "catalog.removed", Data: map[string]any{"catalog": "hive"}})
	msg := readMessage(t, conn)
	assert.Equal(t, "catalog.removed", msg.Type)
	assert.Equal(t, map[string]any{"catalog": "hive"}, msg.Data)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

// TestHub_MultipleClients tests fan-out to several clients.
func TestHub_MultipleClients(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conns := []*websocket.Conn{dial(t, srv.URL), dial(t, srv.URL), dial(t, srv.URL)}
	for _, c := range conns {
		readMessage(t, c)
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, 2*time.Second, 5*time.Millisecond)

	hub.Broadcast(Message{Type: "cycle.completed"})
	for _, c := range conns {
		assert.Equal(t, "cycle.completed", readMessage(t, c).Type)
	}
}

// TestHub_Shutdown tests that Run closes connections and refuses new ones.
func TestHub_Shutdown(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv.URL)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())

	late := dial(t, srv.URL)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

// TestHub_SlowClientDisconnected tests that a full buffer drops the client.
func TestHub_SlowClientDisconnected(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	slow := &Client{id: "slow", hub: hub, send: make(chan Message, 1)}
	require.True(t, hub.register(slow))

	hub.Broadcast(Message{Type: "a"})
	hub.Broadcast(Message{Type: "b"})

	assert.Equal(t, 0, hub.ClientCount())
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}
