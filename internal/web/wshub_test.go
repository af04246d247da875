package web

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

func startHub(t *testing.T) (*WSHub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewWSHub(nil)
	hub.OnSubscribe(func(channel string) (WSMessage, bool) {
		if channel != "badges" {
			return WSMessage{}, false
		}
		return WSMessage{Type: "badges.updated", Channel: channel, Data: map[string]int{"orders": 2}}, true
	})
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.HandleWS(testSecret))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHub_RejectsMissingToken(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSHub_SubscribeAndBroadcast(t *testing.T) {
	hub, srv := startHub(t)
	token, _, err := GenerateJWT(testAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "subscribe", "channels": []string{"badges"}}))

	greeting := readMessage(t, conn)
	assert.Equal(t, "badges.updated", greeting.Type)
	assert.Equal(t, map[string]any{"orders": float64(2)}, greeting.Data)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("other", "ignored", nil)
	hub.Broadcast("badges", "badges.refreshed", map[string]int{"orders": 5})

	msg := readMessage(t, conn)
	assert.Equal(t, "badges.refreshed", msg.Type)
	assert.Equal(t, "badges", msg.Channel)
}

func TestWSHub_Ping(t *testing.T) {
	_, srv := startHub(t)
	token, _, err := GenerateJWT(testAdmin, testSecret, time.Hour)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var resp map[string]string
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "pong", resp["action"])
}

func TestWSHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewWSHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Broadcast("badges", "x", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}
