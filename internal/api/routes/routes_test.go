package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"relay-gateway/internal/config"
	"relay-gateway/internal/gateway"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env: "test",
		RateLimit: config.RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *gateway.Hub) {
	t.Helper()

	hub := gateway.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := NewRouter(hub, nil, testConfig())
	router.SetupRoutes()

	srv := httptest.NewServer(router.GetEngine())
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + event + `"`),
		"data":  raw,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func readMessage(t *testing.T, conn *websocket.Conn) gateway.MessageOut {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev gateway.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, gateway.EventMessage, ev.Event)

	var out gateway.MessageOut
	require.NoError(t, json.Unmarshal(ev.Data, &out))
	return out
}

func TestRootRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebSocketRelay(t *testing.T) {
	srv, hub := newTestServer(t)

	sender := dialWS(t, srv)
	receiver := dialWS(t, srv)

	sendEvent(t, sender, "join", "r1")
	sendEvent(t, receiver, "join", "r1")

	require.Eventually(t, func() bool {
		return hub.RoomMembers("r1") == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendEvent(t, sender, "message", map[string]string{"room": "r1", "text": "hello"})

	for _, conn := range []*websocket.Conn{sender, receiver} {
		out := readMessage(t, conn)
		assert.Equal(t, "hello", out.Text)
		assert.True(t, strings.HasPrefix(out.User, "anon-"))
		assert.WithinDuration(t, time.Now().UTC(), out.Date, 5*time.Second)
	}
}

func TestWebSocketDisconnectCleansMembership(t *testing.T) {
	srv, hub := newTestServer(t)

	conn := dialWS(t, srv)
	sendEvent(t, conn, "join", "r1")

	require.Eventually(t, func() bool {
		return hub.RoomMembers("r1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.RoomMembers("r1") == 0 && hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
