package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type countingRecorder struct {
	connects, disconnects atomic.Int32
}

func (r *countingRecorder) RecordWebSocketConnection(action string) {
	if action == "connect" {
		r.connects.Add(1)
	} else {
		r.disconnects.Add(1)
	}
}

type tokenAuthenticator map[string]*models.User

func (a tokenAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if user, ok := a[token]; ok {
		return user, nil
	}
	return nil, &home.AuthError{Message: "Invalid or expired token"}
}

func startHub(t *testing.T) (*Hub, *httptest.Server, *countingRecorder) {
	return startHubWith(t, nil)
}

func startHubWith(t *testing.T, auth Authenticator) (*Hub, *httptest.Server, *countingRecorder) {
	t.Helper()
	hub := NewHub(Settings{}, quietLogger())
	recorder := &countingRecorder{}
	hub.SetRecorder(recorder)
	if auth != nil {
		hub.SetAuthenticator(auth)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleWebSocket(hub, w, r)
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server, recorder
}

func dial(t *testing.T, server *httptest.Server) *gorilla.Conn {
	t.Helper()
	return dialWithToken(t, server, "")
}

func dialWithToken(t *testing.T, server *httptest.Server, token string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessages reads one frame; the write pump may batch queued messages
// into a single frame separated by newlines.
func readMessages(t *testing.T, conn *gorilla.Conn) []Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var out []Message
	for _, line := range strings.Split(string(data), "\n") {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		out = append(out, msg)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestHub_WelcomeAndNotify(t *testing.T) {
	hub, server, recorder := startHub(t)
	conn := dial(t, server)

	welcome := readMessages(t, conn)
	require.Equal(t, MessageTypeConnection, welcome[0].Type)
	assert.Equal(t, "connected", welcome[0].Data["status"])
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	assert.Equal(t, int32(1), recorder.connects.Load())

	hub.Notify(home.ChangeSet{
		Operation: "toggle_device",
		Devices:   []*models.Device{{ID: "d-1", Name: "Kitchen Lights", Active: true}},
	})

	msgs := readMessages(t, conn)
	require.Equal(t, MessageTypeDeviceUpdated, msgs[0].Type)
	assert.Equal(t, TopicDevices, msgs[0].Topic)
	entity := msgs[0].Data["entity"].(map[string]interface{})
	assert.Equal(t, "d-1", entity["id"])
}

func TestHub_Subscriptions(t *testing.T) {
	hub, server, _ := startHub(t)
	conn := dial(t, server)
	readMessages(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": MessageTypeSubscribe,
		"data": map[string]interface{}{"topics": []string{TopicRooms}},
	}))
	ack := readMessages(t, conn)
	require.Equal(t, MessageTypeSubscription, ack[0].Type)
	assert.Equal(t, []interface{}{TopicRooms}, ack[0].Data["topics"])

	hub.Notify(home.ChangeSet{Devices: []*models.Device{{ID: "d-1"}}})
	hub.Notify(home.ChangeSet{Rooms: []*models.Room{{ID: "r-1", Name: "Kitchen"}}})

	msgs := readMessages(t, conn)
	require.Equal(t, MessageTypeRoomUpdated, msgs[0].Type)
	assert.Equal(t, "r-1", msgs[0].Data["entity"].(map[string]interface{})["id"])
}

func TestHub_UsersOnlyReachAdminSessions(t *testing.T) {
	auth := tokenAuthenticator{
		"admin-token":  {ID: "u-admin", Name: "Admin", Role: models.RoleAdmin},
		"member-token": {ID: "u-member", Name: "Jamie", Role: models.RoleUser},
	}
	hub, server, _ := startHubWith(t, auth)

	anonymous := dial(t, server)
	member := dialWithToken(t, server, "member-token")
	admin := dialWithToken(t, server, "admin-token")

	welcome := readMessages(t, anonymous)
	assert.NotContains(t, welcome[0].Data["topics"], TopicUsers)
	readMessages(t, member)
	welcome = readMessages(t, admin)
	assert.Contains(t, welcome[0].Data["topics"], TopicUsers)
	assert.Equal(t, true, welcome[0].Data["admin"])
	waitFor(t, func() bool { return hub.GetClientCount() == 3 })

	// An explicit subscription does not unlock the users topic
	require.NoError(t, member.WriteJSON(map[string]interface{}{
		"type": MessageTypeSubscribe,
		"data": map[string]interface{}{"topics": []string{TopicUsers}},
	}))
	ack := readMessages(t, member)
	require.Equal(t, MessageTypeSubscription, ack[0].Type)
	assert.Empty(t, ack[0].Data["topics"])

	hub.Notify(home.ChangeSet{
		Operation: "create_user",
		Users:     []*models.User{{ID: "u-2", Name: "Jane", Email: "jane@example.com", Role: models.RoleUser}},
	})
	hub.Notify(home.ChangeSet{
		Operation: "delete_user",
		Removed:   []home.Ref{{Kind: home.KindUser, ID: "u-2"}},
	})
	hub.Notify(home.ChangeSet{Devices: []*models.Device{{ID: "d-1"}}})

	for _, conn := range []*gorilla.Conn{anonymous, member} {
		msgs := readMessages(t, conn)
		require.Len(t, msgs, 1)
		assert.Equal(t, MessageTypeDeviceUpdated, msgs[0].Type)
	}

	var types []string
	for len(types) < 3 {
		for _, msg := range readMessages(t, admin) {
			types = append(types, msg.Type)
		}
	}
	assert.Equal(t, []string{MessageTypeUserUpdated, MessageTypeEntityRemoved, MessageTypeDeviceUpdated}, types)
}

func TestHub_RejectsInvalidToken(t *testing.T) {
	hub, server, _ := startHubWith(t, tokenAuthenticator{})

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=stale"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, gorilla.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestSessionToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	assert.Equal(t, "abc", sessionToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", sessionToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, sessionToken(req))
}

func TestHub_Ping(t *testing.T) {
	_, server, _ := startHub(t)
	conn := dial(t, server)
	readMessages(t, conn)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"ping","timestamp":1753104374613}`)))
	msgs := readMessages(t, conn)
	assert.Equal(t, MessageTypePong, msgs[0].Type)
}

func TestHub_Disconnect(t *testing.T) {
	hub, server, recorder := startHub(t)
	conn := dial(t, server)
	readMessages(t, conn)
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
	assert.Equal(t, int32(1), recorder.disconnects.Load())
	assert.Equal(t, int64(1), hub.GetStats().TotalConnections)
}

func TestHub_NotifyRemovedAndScene(t *testing.T) {
	hub := NewHub(Settings{}, quietLogger())

	hub.Notify(home.ChangeSet{
		Actor:   "user-1",
		Removed: []home.Ref{{Kind: home.KindRoom, ID: "r-1"}},
		Scene:   "Good Night",
		Devices: []*models.Device{{ID: "d-1"}, {ID: "d-2"}},
	})

	var got []Message
	for len(hub.broadcast) > 0 {
		got = append(got, <-hub.broadcast)
	}
	require.Len(t, got, 4)
	assert.Equal(t, MessageTypeEntityRemoved, got[2].Type)
	assert.Equal(t, TopicRooms, got[2].Topic)
	assert.Equal(t, "r-1", got[2].Data["id"])
	assert.Equal(t, MessageTypeSceneActivated, got[3].Type)
	assert.Equal(t, "Good Night", got[3].Data["scene"])
	assert.Equal(t, 2, got[3].Data["changed"])
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(Settings{}, quietLogger())

	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.BroadcastToAll(Message{Type: MessageTypeHeartbeat})
	}
	assert.Equal(t, int64(10), hub.GetStats().MessagesDropped)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://panel.local:3000"})

	req := httptest.NewRequest(http.MethodGet, "http://api.local/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://panel.local:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://api.local")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
