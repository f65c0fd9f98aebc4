package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/exquisite-corpse/internal/config"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/server/storage"
)

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := NewServer(cfg, "v-test")
	require.NoError(t, err)

	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		s.Shutdown()
		ts.Close()
	})
	return s, ts
}

// wsConn 测试用 WebSocket 客户端
type wsConn struct {
	conn  *websocket.Conn
	codec codec.Codec
}

func dial(t *testing.T, ts *httptest.Server, subprotocol string) *wsConn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	dialer := websocket.Dialer{Subprotocols: []string{subprotocol}, HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, subprotocol, conn.Subprotocol())

	t.Cleanup(func() { _ = conn.Close() })
	return &wsConn{conn: conn, codec: codec.ForSubprotocol(subprotocol)}
}

func (c *wsConn) send(t *testing.T, msgType protocol.MessageType, payload any) {
	t.Helper()

	data, err := c.codec.Encode(codec.MustNewMessage(msgType, payload))
	require.NoError(t, err)

	frame := websocket.TextMessage
	if c.codec.Binary() {
		frame = websocket.BinaryMessage
	}
	require.NoError(t, c.conn.WriteMessage(frame, data))
}

// expect 读取消息直到出现指定类型
func (c *wsConn) expect(t *testing.T, msgType protocol.MessageType) *protocol.Message {
	t.Helper()

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		frame, data, err := c.conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)
		if c.codec.Binary() {
			require.Equal(t, websocket.BinaryMessage, frame)
		} else {
			require.Equal(t, websocket.TextMessage, frame)
		}

		msg, err := c.codec.Decode(data)
		require.NoError(t, err)
		if msg.Type == msgType {
			return msg
		}
	}
}

func joinPayload(id, name, room string) protocol.JoinRoomPayload {
	return protocol.JoinRoomPayload{ID: protocol.FlexString(id), Name: name, Room: room}
}

func TestWebSocket_JoinAndLeaveJSON(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, nil)

	alice := dial(t, ts, codec.SubprotocolJSON)
	alice.send(t, protocol.MsgJoinRoom, joinPayload("1", "Alice", "room1"))

	joined, err := codec.ParsePayload[protocol.JoinedPayload](alice.expect(t, protocol.MsgJoined))
	require.NoError(t, err)
	assert.Equal(t, "room1", joined.Room)
	assert.Equal(t, "1", joined.Host)
	require.Len(t, joined.Users, 1)
	assert.Equal(t, "Alice", joined.Users[0].Name)

	bob := dial(t, ts, codec.SubprotocolJSON)
	bob.send(t, protocol.MsgJoinRoom, joinPayload("2", "Bob", "room1"))
	bob.expect(t, protocol.MsgJoined)

	userJoin, err := codec.ParsePayload[protocol.UserJoinPayload](alice.expect(t, protocol.MsgUserJoin))
	require.NoError(t, err)
	assert.Equal(t, protocol.PlayerInfo{ID: "2", Name: "Bob"}, userJoin.Player)

	require.Eventually(t, func() bool { return s.GetOnlineCount() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bob.conn.Close())

	leave, err := codec.ParsePayload[protocol.UserLeavePayload](alice.expect(t, protocol.MsgUserLeave))
	require.NoError(t, err)
	assert.Equal(t, "2", leave.ID)

	assert.Eventually(t, func() bool { return s.GetOnlineCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_ProtobufSubprotocol(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)

	alice := dial(t, ts, codec.SubprotocolProtobuf)
	alice.send(t, protocol.MsgJoinRoom, joinPayload("7", "Alice", "pb"))

	joined, err := codec.ParsePayload[protocol.JoinedPayload](alice.expect(t, protocol.MsgJoined))
	require.NoError(t, err)
	assert.Equal(t, "pb", joined.Room)
	assert.Equal(t, "7", joined.Host)

	alice.send(t, protocol.MsgPing, protocol.PingPayload{Timestamp: 42})
	pong, err := codec.ParsePayload[protocol.PongPayload](alice.expect(t, protocol.MsgPong))
	require.NoError(t, err)
	assert.Equal(t, int64(42), pong.ClientTimestamp)
}

func TestWebSocket_MixedCodecsShareRoom(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)

	alice := dial(t, ts, codec.SubprotocolJSON)
	alice.send(t, protocol.MsgJoinRoom, joinPayload("1", "Alice", "mix"))
	alice.expect(t, protocol.MsgJoined)

	bob := dial(t, ts, codec.SubprotocolProtobuf)
	bob.send(t, protocol.MsgJoinRoom, joinPayload("2", "Bob", "mix"))
	bob.expect(t, protocol.MsgJoined)
	alice.expect(t, protocol.MsgUserJoin)

	raw := map[string]any{
		"firstPage": "Write", "pageCount": 2, "pageOrder": "Normal",
		"palette": "No palette", "timeWrite": 0, "timeDraw": 0,
	}
	alice.send(t, protocol.MsgStartGame, map[string]any{"settings": raw})

	started, err := codec.ParsePayload[protocol.GameStartedPayload](bob.expect(t, protocol.MsgStartGame))
	require.NoError(t, err)
	assert.Len(t, started.Books, 2)
	alice.expect(t, protocol.MsgStartGame)

	alice.send(t, protocol.MsgSubmitPage, map[string]any{"type": "Write", "value": "a cat"})
	page, err := codec.ParsePayload[protocol.PagePayload](bob.expect(t, protocol.MsgPage))
	require.NoError(t, err)
	assert.Equal(t, "a cat", page.Value)
	assert.Equal(t, "1", page.Author)

	bob.send(t, protocol.MsgSubmitPage, map[string]any{"type": "Write", "value": "a dog"})
	alice.expect(t, protocol.MsgNextPage)
	bob.expect(t, protocol.MsgNextPage)
}

func TestWebSocket_UndecodableFrame(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)
	c := dial(t, ts, codec.SubprotocolJSON)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	errPayload, err := codec.ParsePayload[protocol.ErrorPayload](c.expect(t, protocol.MsgError))
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errPayload.Code)
}

func TestWebSocket_ProtocolViolationCloses(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, nil)
	c := dial(t, ts, codec.SubprotocolJSON)

	// 未加入房间就开始游戏
	c.send(t, protocol.MsgStartGame, map[string]any{"settings": map[string]any{}})

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool { return s.GetOnlineCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_MaintenanceRejectsUpgrade(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, nil)
	s.EnterMaintenanceMode()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocket_OriginRejected(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.AllowedOrigins = []string{"https://corpse.example.com"}
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_MaxConnections(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxConnections = 1
	})

	dial(t, ts, codec.SubprotocolJSON)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRoutes_HealthAndVersion(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)

	tests := []struct {
		path string
		body string
	}{
		{"/healthz", "OK"},
		{"/version", "v-test\n"},
	}

	for _, tt := range tests {
		resp, err := http.Get(ts.URL + tt.path)
		require.NoError(t, err)
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.Equal(t, tt.body, buf.String(), tt.path)
	}
}

func TestRoutes_RoomList(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	var empty []protocol.RoomListItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	_ = resp.Body.Close()
	assert.Empty(t, empty)

	c := dial(t, ts, codec.SubprotocolJSON)
	c.send(t, protocol.MsgJoinRoom, joinPayload("1", "Alice", "lobby1"))
	c.expect(t, protocol.MsgJoined)

	resp, err = http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rooms []protocol.RoomListItem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "lobby1", rooms[0].RoomID)
	assert.Equal(t, 1, rooms[0].PlayerCount)
	assert.Equal(t, "LOBBY", rooms[0].Phase)
}

func TestRoutes_RoomQR(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/rooms/abc/qr")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	bad, err := http.Get(ts.URL + "/rooms/not-a-valid-room/qr")
	require.NoError(t, err)
	_ = bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestJoinURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		publicURL string
		proto     string
		expected  string
	}{
		{"public url", "https://corpse.example.com/", "", "https://corpse.example.com/?room=abc"},
		{"request host", "", "", "http://example.com/?room=abc"},
		{"forwarded proto", "", "https", "https://example.com/?room=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Server.PublicURL = tt.publicURL
			s := &Server{config: cfg}

			req := httptest.NewRequest(http.MethodGet, "/rooms/abc/qr", nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			assert.Equal(t, tt.expected, s.joinURL(req, "abc"))
		})
	}
}

func TestNewServer_RedisMirror(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	// 上次运行残留的快照
	require.NoError(t, mr.Set("corpse:room:stale", "{}"))

	s, ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Redis.Addr = mr.Addr()
	})
	require.NotNil(t, s.mirror)
	assert.False(t, mr.Exists("corpse:room:stale"))

	c := dial(t, ts, codec.SubprotocolJSON)
	c.send(t, protocol.MsgJoinRoom, joinPayload("1", "Alice", "snap"))
	c.expect(t, protocol.MsgJoined)

	assert.Eventually(t, func() bool { return mr.Exists("corpse:room:snap") }, 2*time.Second, 20*time.Millisecond)

	raw, err := mr.Get("corpse:room:snap")
	require.NoError(t, err)
	var data storage.RoomData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Equal(t, "LOBBY", data.Phase)
	require.Len(t, data.Members, 1)
	assert.Equal(t, "Alice", data.Members[0].Name)
}

func TestNewServer_RedisUnavailable(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"
	s, err := NewServer(cfg, "v-test")
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestShutdown_ClosesRoomsAndClients(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, nil)

	c := dial(t, ts, codec.SubprotocolJSON)
	c.send(t, protocol.MsgJoinRoom, joinPayload("1", "Alice", "bye"))
	c.expect(t, protocol.MsgJoined)

	s.Shutdown()
	s.Shutdown()

	assert.Equal(t, 0, s.roomManager.Count())
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
