package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	outboxSize     = 32
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are queued and replayed
// in order once the client reconnects.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	pending   *outbox
	connected bool // at least one successful connect

	// Seams over the client, replaced in tests.
	isOpen func() bool
	send   func(payload []byte, retained bool) error
}

// NewRealPublisher creates a publisher for the given broker. A broker that is
// not reachable within the connect timeout is not an error: the client keeps
// retrying in the background and lifecycle events are queued meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventOffline,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := &RealPublisher{pending: newOutbox(outboxSize)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetWill(TopicSystem, string(will), 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.isOpen = p.client.IsConnectionOpen
	p.send = p.publish

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		p.client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// PublishSystem sends a system lifecycle event (QoS 1). While disconnected
// the event is queued instead.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	p.mu.Lock()
	if !p.isOpen() {
		p.pending.push(pendingMsg{payload: payload, retained: event.Retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.send(payload, event.Retained)
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.isOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second quiesce
	}
	return nil
}

func (p *RealPublisher) publish(payload []byte, retained bool) error {
	token := p.client.Publish(TopicSystem, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// onConnect replays queued messages. paho runs it on its own goroutine.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected, replaying %d queued messages", len(msgs))
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		if err == nil {
			msgs = append(msgs, pendingMsg{payload: payload})
		}
	}
	if dropped > 0 {
		log.Printf("mqtt: %d queued messages were dropped while disconnected", dropped)
	}

	for _, m := range msgs {
		if err := p.send(m.payload, m.retained); err != nil {
			log.Printf("mqtt: replay failed: %v", err)
		}
	}
}
