// Package mqtt mirrors committed home state onto an MQTT broker. Devices,
// rooms and automations are published as retained JSON state documents and
// scene activations as plain events.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// Client is the subset of the paho client the publisher uses
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

type outbound struct {
	topic    string
	retained bool
	payload  []byte
}

// Publisher implements home.Notifier on top of an MQTT client
type Publisher struct {
	client  Client
	root    string
	qos     byte
	queue   chan outbound
	logger  *logrus.Logger
	dropped atomic.Int64
	failed  atomic.Int64
}

// Connect dials the configured broker and returns a publisher for it
func Connect(cfg config.MQTTConfig, logger *logrus.Logger) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetMaxReconnectInterval(time.Minute).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logger.WithField("broker", cfg.Broker).Info("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout after %v", cfg.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	return NewPublisher(client, cfg, logger), nil
}

// NewPublisher wraps an already connected client
func NewPublisher(client Client, cfg config.MQTTConfig, logger *logrus.Logger) *Publisher {
	root := strings.Trim(cfg.TopicRoot, "/")
	if root == "" {
		root = "homepanel"
	}
	return &Publisher{
		client: client,
		root:   root,
		qos:    byte(cfg.QoS),
		queue:  make(chan outbound, queueSize),
		logger: logger,
	}
}

// Topic joins parts under the configured root
func (p *Publisher) Topic(parts ...string) string {
	return p.root + "/" + strings.Join(parts, "/")
}

// Notify queues the state of every changed entity. It never blocks; when
// the queue is full messages are dropped and counted.
func (p *Publisher) Notify(change home.ChangeSet) {
	for _, d := range change.Devices {
		p.enqueue(p.Topic("devices", d.ID, "state"), true, d)
	}
	for _, r := range change.Rooms {
		p.enqueue(p.Topic("rooms", r.ID, "state"), true, r)
	}
	for _, a := range change.Automations {
		p.enqueue(p.Topic("automations", a.ID, "state"), true, a)
	}
	for _, ref := range change.Removed {
		switch ref.Kind {
		case home.KindDevice, home.KindRoom, home.KindAutomation:
			// An empty retained payload clears the broker's copy
			p.push(outbound{topic: p.Topic(string(ref.Kind)+"s", ref.ID, "state"), retained: true})
		}
	}
	if change.Scene != "" {
		p.enqueue(p.Topic("events", "scene"), false, map[string]interface{}{
			"scene":     change.Scene,
			"actor":     change.Actor,
			"changed":   len(change.Devices),
			"timestamp": time.Now().UTC(),
		})
	}
}

func (p *Publisher) enqueue(topic string, retained bool, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to encode MQTT payload")
		return
	}
	p.push(outbound{topic: topic, retained: retained, payload: payload})
}

func (p *Publisher) push(msg outbound) {
	select {
	case p.queue <- msg:
	default:
		p.dropped.Add(1)
		p.logger.WithField("topic", msg.topic).Warn("MQTT queue is full, message dropped")
	}
}

// Run publishes queued messages until ctx is done, then disconnects
func (p *Publisher) Run(ctx context.Context) {
	defer p.client.Disconnect(250)
	for {
		select {
		case msg := <-p.queue:
			p.publish(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) publish(msg outbound) {
	token := p.client.Publish(msg.topic, p.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		p.failed.Add(1)
		p.logger.WithField("topic", msg.topic).Warn("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.failed.Add(1)
		p.logger.WithError(err).WithField("topic", msg.topic).Warn("MQTT publish failed")
	}
}

// Stats reports dropped and failed publishes
func (p *Publisher) Stats() (dropped, failed int64) {
	return p.dropped.Load(), p.failed.Load()
}
