package websocket

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

// Maximum message size allowed from peer
const maxMessageSize = 512

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client identifier
	ID string

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages, closed by the hub
	send     chan []byte
	sendMu   sync.Mutex
	sendDone bool

	// Hub reference
	hub *Hub

	// Logger
	logger *logrus.Logger

	// Client metadata
	UserAgent   string    `json:"user_agent"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	UserID      string    `json:"user_id,omitempty"`

	// Set for admin sessions; gates adminTopics
	admin bool

	// Topic subscriptions; empty means every topic
	mu     sync.RWMutex
	topics map[string]bool
}

func (h *Hub) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(h.settings.AllowedOrigins),
	}
}

// originChecker accepts same-host requests, requests without an Origin
// header and any listed origin. A "*" entry accepts everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// sessionToken reads the token from the "token" query parameter, which
// browsers can set on an upgrade, or from a bearer Authorization header
func sessionToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// authenticate returns the session user, nil for anonymous clients, or an
// error when a token was offered and rejected
func (h *Hub) authenticate(r *http.Request) (*models.User, error) {
	token := sessionToken(r)
	if token == "" || h.auth == nil {
		return nil, nil
	}
	return h.auth.Authenticate(r.Context(), token)
}

// HandleWebSocket handles websocket requests from clients
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	user, err := hub.authenticate(r)
	if err != nil {
		hub.logger.WithError(err).WithField("remote_addr", r.RemoteAddr).Warn("Rejected WebSocket session")
		http.Error(w, "invalid or expired session", http.StatusUnauthorized)
		return
	}

	conn, err := hub.upgrader().Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, 256),
		hub:         hub,
		logger:      hub.logger,
		UserAgent:   r.Header.Get("User-Agent"),
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now(),
		topics:      make(map[string]bool),
	}
	if user != nil {
		client.UserID = user.ID
		client.admin = user.Role == models.RoleAdmin
	}

	// Register the client with the hub
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines
	go client.writePump()
	go client.readPump()
}

// HandleWebSocketGin is a Gin-compatible wrapper for HandleWebSocket
func HandleWebSocketGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleWebSocket(hub, c.Writer, c.Request)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	pongWait := c.hub.settings.PongWait
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket connection error")
			}
			break
		}

		c.handleMessage(message)
		c.hub.messagesReceived.Add(1)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.settings.PingPeriod)
	writeWait := c.hub.settings.WriteWait
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data without blocking and reports whether it fit
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendDone {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound channel once
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendDone {
		c.sendDone = true
		close(c.send)
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal WebSocket message")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		c.Subscribe(topicsOf(msg)...)
		c.ackSubscriptions()
	case MessageTypeUnsubscribe:
		c.Unsubscribe(topicsOf(msg)...)
		c.ackSubscriptions()
	case MessageTypePing:
		pong := Message{Type: MessageTypePong, Data: map[string]interface{}{}}
		c.trySend(pong.ToJSON())
	default:
		c.logger.WithField("message_type", msg.Type).Warn("Unknown WebSocket message type")
	}
}

func topicsOf(msg Message) []string {
	raw, _ := msg.Data["topics"].([]interface{})
	topics := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok && s != "" {
			topics = append(topics, s)
		}
	}
	return topics
}

func (c *Client) ackSubscriptions() {
	ack := Message{
		Type: MessageTypeSubscription,
		Data: map[string]interface{}{"topics": c.Topics()},
	}
	c.trySend(ack.ToJSON())
}

// Subscribe limits the client to the given topics. Topics the session may
// not read are ignored.
func (c *Client) Subscribe(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		if adminTopics[t] && !c.admin {
			continue
		}
		c.topics[t] = true
	}
	c.logger.WithFields(logrus.Fields{
		"client_id": c.ID,
		"topics":    topics,
	}).Debug("Client subscribed")
}

// Unsubscribe removes topics; a client left with none receives everything
func (c *Client) Unsubscribe(topics ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.topics, t)
	}
}

// Topics returns the current subscriptions
func (c *Client) Topics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	return topics
}

// availableTopics lists the topics this session may subscribe to
func (c *Client) availableTopics() []string {
	topics := []string{TopicDevices, TopicRooms, TopicScenes, TopicAutomations}
	if c.admin {
		topics = append(topics, TopicUsers)
	}
	return topics
}

// Wants reports whether a message on topic should be delivered. Untopiced
// messages go to everyone; admin topics only to admin sessions.
func (c *Client) Wants(topic string) bool {
	if adminTopics[topic] && !c.admin {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if topic == "" || len(c.topics) == 0 {
		return true
	}
	return c.topics[topic]
}
