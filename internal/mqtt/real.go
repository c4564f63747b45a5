package mqtt

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/home-monitor/internal/logic"
)

const (
	defaultConnectTimeout = 10 * time.Second
	publishTimeout        = 5 * time.Second

	// DefaultOutboxSize is how many messages are kept while the broker is unreachable.
	DefaultOutboxSize = 100
)

// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
var ErrPublishTimeout = errors.New("publish timeout")

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BootID     string
	OutboxSize int

	// ConnectTimeout bounds how long NewRealPublisher waits for the first
	// connection before returning and leaving the client to retry.
	ConnectTimeout time.Duration
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are queued and sent, oldest first, on reconnect.
type RealPublisher struct {
	client paho.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending *outbox
}

// NewRealPublisher starts connecting to the broker. An unreachable broker is
// not an error: the client keeps retrying in the background and messages are
// queued until it connects.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.OutboxSize == 0 {
		o.OutboxSize = DefaultOutboxSize
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	p := &RealPublisher{
		logger:  slog.Default().With("broker", o.Broker),
		pending: newOutbox(o.OutboxSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload(o.BootID)), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("mqtt: connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		p.logger.Warn("mqtt: broker not reachable yet, queueing messages")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends a state change to the broker (QoS 0, not retained).
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(message{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a lifecycle event to the broker (QoS 1).
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(message{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker. Queued messages are discarded.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if n := p.pending.len(); n > 0 {
		p.logger.Warn("mqtt: discarding queued messages", "count", n)
	}
	p.mu.Unlock()
	p.client.Disconnect(1000)
	return nil
}

func (p *RealPublisher) send(m message) error {
	if !p.client.IsConnectionOpen() {
		p.queue(m)
		return nil
	}
	return p.publish(m)
}

func (p *RealPublisher) publish(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%s: %w", m.topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

func (p *RealPublisher) queue(m message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.add(m) && p.pending.dropped == 1 {
		p.logger.Warn("mqtt: outbox full, dropping oldest", "capacity", len(p.pending.msgs))
	}
}

// onConnect replays queued messages. paho runs it on its own goroutine.
func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	p.mu.Unlock()

	p.logger.Info("mqtt: connected", "queued", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		if err := p.publish(m); err != nil {
			p.logger.Warn("mqtt: replay failed", "topic", m.topic, "error", err)
		}
	}
}
