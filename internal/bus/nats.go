package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSBus is a Bus driver backed by a NATS server, for deployments where
// room fan-out has to cross server instances. Each subscriber handle gets
// its own NATS subscription; nats.go dispatches one handler at a time per
// subscription, which preserves the per-subscriber FIFO guarantee.
type NATSBus struct {
	conn *nats.Conn
	log  *zerolog.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription // keyed by topic + "/" + subscriber ID
}

// NewNATSBus connects to the NATS server at url.
func NewNATSBus(url string, logger *zerolog.Logger) (*NATSBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSBus{
		conn: conn,
		log:  logger,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

func subjectFor(topic string) string {
	return "deskchat." + topic
}

// Subscribe registers the handle under topic. Idempotent per subscriber ID.
func (b *NATSBus) Subscribe(_ context.Context, topic string, sub *Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := topic + "/" + sub.ID
	if _, exists := b.subs[key]; exists {
		return nil
	}

	deliver := sub.Deliver
	natsSub, err := b.conn.Subscribe(subjectFor(topic), func(msg *nats.Msg) {
		deliver(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", topic, err)
	}

	b.subs[key] = natsSub
	return nil
}

// Unsubscribe removes the handle; unknown handles are a no-op.
func (b *NATSBus) Unsubscribe(_ context.Context, topic, subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := topic + "/" + subscriberID
	natsSub, exists := b.subs[key]
	if !exists {
		return nil
	}
	delete(b.subs, key)

	if err := natsSub.Unsubscribe(); err != nil {
		// The handle is already gone from our registry; a broker-side
		// failure here must not fail the session teardown.
		b.log.Warn().Err(err).Str("topic", topic).Msg("nats unsubscribe failed")
	}
	return nil
}

// Publish sends the payload to every subscription on the topic's subject.
func (b *NATSBus) Publish(_ context.Context, topic string, payload []byte) error {
	if err := b.conn.Publish(subjectFor(topic), payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	return nil
}

// Close drains the connection so queued publishes flush first.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, natsSub := range b.subs {
		_ = natsSub.Unsubscribe()
		delete(b.subs, key)
	}

	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
