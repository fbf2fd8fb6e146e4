package websocket

import (
	"encoding/json"
	"strconv"
	"time"
)

// Message types for WebSocket communication
const (
	MessageTypeDeviceUpdated     = "device_updated"
	MessageTypeRoomUpdated       = "room_updated"
	MessageTypeSceneUpdated      = "scene_updated"
	MessageTypeAutomationUpdated = "automation_updated"
	MessageTypeUserUpdated       = "user_updated"
	MessageTypeEntityRemoved     = "entity_removed"
	MessageTypeSceneActivated    = "scene_activated"

	// Connection management
	MessageTypeConnection   = "connection"
	MessageTypeHeartbeat    = "heartbeat"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscription = "subscription_update"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Topic     string                 `json:"topic,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// UnmarshalJSON accepts the timestamp as RFC3339 text or Unix seconds or
// milliseconds, as a number or a string. Browsers send Date.now().
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string                 `json:"type"`
		Topic     string                 `json:"topic"`
		Data      map[string]interface{} `json:"data"`
		Timestamp interface{}            `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Type = raw.Type
	m.Topic = raw.Topic
	m.Data = raw.Data
	m.Timestamp = parseTimestamp(raw.Timestamp)
	return nil
}

// parseTimestamp converts the supported encodings to a time, falling back to
// now for anything unrecognized
func parseTimestamp(value interface{}) time.Time {
	switch v := value.(type) {
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromUnix(n)
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		return fromUnix(int64(v))
	case int64:
		return fromUnix(v)
	case int:
		return fromUnix(int64(v))
	}
	return time.Now().UTC()
}

// fromUnix treats values past the year 33658 in seconds as milliseconds
func fromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.Unix(0, n*int64(time.Millisecond))
	}
	return time.Unix(n, 0)
}

// EntityMessage creates a message announcing the new state of one entity
func EntityMessage(messageType, topic string, entity interface{}) Message {
	return Message{
		Type:  messageType,
		Topic: topic,
		Data: map[string]interface{}{
			"entity": entity,
		},
	}
}

// EntityRemovedMessage creates a message announcing a deletion
func EntityRemovedMessage(topic, kind, id string) Message {
	return Message{
		Type:  MessageTypeEntityRemoved,
		Topic: topic,
		Data: map[string]interface{}{
			"kind": kind,
			"id":   id,
		},
	}
}

// SceneActivatedMessage creates a message announcing a scene activation
func SceneActivatedMessage(scene, actor string, changed int) Message {
	return Message{
		Type:  MessageTypeSceneActivated,
		Topic: TopicScenes,
		Data: map[string]interface{}{
			"scene":   scene,
			"actor":   actor,
			"changed": changed,
		},
	}
}
