package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	svc := NewService(DefaultConfig(), nil, clockwork.NewRealClock())
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return svc, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType EventType, payload interface{}) {
	t.Helper()
	frame, err := EncodeFrame(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// readUntil returns the first frame of the wanted type
func readUntil(t *testing.T, conn *websocket.Conn, want EventType) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		frame, err := DecodeFrame(raw)
		require.NoError(t, err)
		if frame.Type == want {
			return frame
		}
	}
}

func TestWebSocketRelayEndToEnd(t *testing.T) {
	svc, srv := startRelay(t)
	alice, bob := dial(t, srv), dial(t, srv)

	send(t, alice, EventJoinRoom, JoinRoomPayload{RoomID: "demo", User: ref("alice")})
	readUntil(t, alice, EventRoomUsers)
	send(t, bob, EventJoinRoom, JoinRoomPayload{RoomID: "demo", User: ref("bob")})

	var roster []map[string]interface{}
	require.NoError(t, json.Unmarshal(readUntil(t, alice, EventRoomUsers).Data, &roster))
	assert.Len(t, roster, 2)
	readUntil(t, bob, EventRoomUsers)

	send(t, alice, EventDrawAction, DrawPayload{RoomID: "demo", Action: stroke("s1")})
	frame := readUntil(t, bob, EventDrawAction)
	assert.Contains(t, string(frame.Data), `"id":"s1"`)

	assert.Equal(t, 2, svc.Hub().Stats().TotalConnections)

	require.NoError(t, bob.Close())
	require.NoError(t, json.Unmarshal(readUntil(t, alice, EventRoomUsers).Data, &roster))
	assert.Len(t, roster, 1)
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	_, srv := startRelay(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	readUntil(t, conn, EventError)

	send(t, conn, EventDrawAction, DrawPayload{RoomID: "demo", Action: stroke("s1")})
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, EventError).Data, &payload))
	assert.Contains(t, payload.Message, "not joined")

	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomID: "demo", User: ref("alice")})
	readUntil(t, conn, EventRoomUsers)
}

func TestStatsEndpoint(t *testing.T) {
	_, srv := startRelay(t)
	conn := dial(t, srv)
	send(t, conn, EventJoinRoom, JoinRoomPayload{RoomID: "demo", User: ref("alice")})
	readUntil(t, conn, EventRoomUsers)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.EqualValues(t, 1, raw["total_connections"])
	assert.EqualValues(t, 1, raw["active_rooms"])
	rooms, ok := raw["rooms"].([]interface{})
	require.True(t, ok)
	require.Len(t, rooms, 1)
	assert.Equal(t, map[string]interface{}{"room_id": "demo", "connections": float64(1)}, rooms[0])
}
