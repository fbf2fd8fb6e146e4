package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

// Topics a client can subscribe to
const (
	TopicDevices     = "devices"
	TopicRooms       = "rooms"
	TopicScenes      = "scenes"
	TopicAutomations = "automations"
	TopicUsers       = "users"
)

// adminTopics carry account data and are only delivered to admin sessions
var adminTopics = map[string]bool{
	TopicUsers: true,
}

// Authenticator resolves a session token to its user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// ConnectionRecorder is told about client connects and disconnects
type ConnectionRecorder interface {
	RecordWebSocketConnection(action string)
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for all subscribed clients
	broadcast chan Message

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	logger   *logrus.Logger
	settings Settings
	recorder ConnectionRecorder
	auth     Authenticator

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Statistics
	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
	messagesDropped  atomic.Int64
	lastActivity     atomic.Int64
}

// Settings are the connection timings handed to each client
type Settings struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string
}

// SettingsFromConfig converts the configured second counts
func SettingsFromConfig(ws config.WebSocketConfig, origins []string) Settings {
	s := Settings{
		PingPeriod:     time.Duration(ws.PingInterval) * time.Second,
		PongWait:       time.Duration(ws.PongTimeout) * time.Second,
		WriteWait:      time.Duration(ws.WriteTimeout) * time.Second,
		AllowedOrigins: origins,
	}
	return s.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.PongWait <= 0 {
		s.PongWait = 60 * time.Second
	}
	if s.PingPeriod <= 0 || s.PingPeriod >= s.PongWait {
		s.PingPeriod = (s.PongWait * 9) / 10
	}
	if s.WriteWait <= 0 {
		s.WriteWait = 10 * time.Second
	}
	return s
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesDropped  int64     `json:"messages_dropped"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(settings Settings, logger *logrus.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		settings:   settings.withDefaults(),
	}
	h.touch()
	return h
}

// SetRecorder installs a connection recorder
func (h *Hub) SetRecorder(recorder ConnectionRecorder) {
	h.recorder = recorder
}

// SetAuthenticator enables session tokens on the upgrade request. Without
// one every client is anonymous.
func (h *Hub) SetAuthenticator(auth Authenticator) {
	h.auth = auth
}

func (h *Hub) touch() {
	h.lastActivity.Store(time.Now().UnixNano())
}

// Run handles client registration and broadcasting until ctx is done, then
// disconnects every client
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	defer close(h.done)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.sendHeartbeat()

		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	h.touch()
	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection("connect")
	}

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": count,
	}).Info("WebSocket client connected")

	// Send welcome message
	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
			"topics":    client.availableTopics(),
			"admin":     client.admin,
		},
	}
	client.trySend(welcome.ToJSON())
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.closeSend()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.touch()
	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection("disconnect")
	}
	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": count,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		client.closeSend()
	}
}

func (h *Hub) broadcastMessage(message Message) {
	data := message.ToJSON()

	h.mu.RLock()
	var slow []*Client
	sent := 0
	for client := range h.clients {
		if !client.Wants(message.Topic) {
			continue
		}
		if client.trySend(data) {
			sent++
		} else {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client whose send buffer is full is dropped rather than blocking the hub
	for _, client := range slow {
		h.unregisterClient(client)
	}

	h.messagesSent.Add(1)
	h.touch()
	h.logger.WithFields(logrus.Fields{
		"message_type": message.Type,
		"topic":        message.Topic,
		"clients_sent": sent,
	}).Debug("Message broadcasted to WebSocket clients")
}

func (h *Hub) sendHeartbeat() {
	h.BroadcastToAll(Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": h.GetClientCount(),
		},
	})
}

// BroadcastToAll queues a message for every client subscribed to its topic.
// It never blocks; when the queue is full the message is dropped.
func (h *Hub) BroadcastToAll(message Message) {
	select {
	case h.broadcast <- message:
	default:
		h.messagesDropped.Add(1)
		h.logger.WithField("message_type", message.Type).Warn("Broadcast channel is full, message dropped")
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() *HubStats {
	return &HubStats{
		ConnectedClients: h.GetClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
		LastActivity:     time.Unix(0, h.lastActivity.Load()).UTC(),
	}
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
