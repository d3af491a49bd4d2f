package api

import (
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

	"freelanceDesk/internal/realtime"
)

func dialRoom(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	return string(data)
}

func TestWebSocketRoomRelay(t *testing.T) {
	hub := realtime.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := newTestServer(t, func(d *Dependencies) { d.Hub = hub })
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	alice := dialRoom(t, url)
	bob := dialRoom(t, url)
	carol := dialRoom(t, url)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","projectId":7}`)))
	assert.JSONEq(t, `{"type":"joined","projectId":7,"status":"success"}`, readText(t, alice))
	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","projectId":"7"}`)))
	assert.JSONEq(t, `{"type":"joined","projectId":"7","status":"success"}`, readText(t, bob))
	require.NoError(t, carol.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","projectId":8}`)))
	readText(t, carol)

	msg := `{"type":"node_add","projectId":7,"node":{"id":"n1","label":"Kickoff"}}`
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(msg)))
	assert.Equal(t, msg, readText(t, bob))

	// 其他房间收不到，发送者也不会收到回显
	require.NoError(t, carol.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := carol.ReadMessage()
	assert.Error(t, err)
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = alice.ReadMessage()
	assert.Error(t, err)

	require.NoError(t, bob.Close())
	assert.Eventually(t, func() bool { return hub.RoomSize("7") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	hub := realtime.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := newTestServer(t, func(d *Dependencies) {
		d.Hub = hub
		d.AllowedOrigins = []string{"https://desk.example.com"}
	})
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://desk.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = conn.Close()
}
