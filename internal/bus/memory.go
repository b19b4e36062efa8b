package bus

import (
	"context"
	"sync"
)

// memberQueueSize bounds the per-subscriber backlog. A subscriber that
// falls this far behind starts losing frames rather than stalling the
// publisher or its room mates.
const memberQueueSize = 64

// member is one registered handle plus its delivery queue. A single drain
// goroutine per member preserves FIFO relative to other publishes on the
// same topic.
type member struct {
	sub   *Subscriber
	queue chan []byte
	done  chan struct{}
}

func newMember(sub *Subscriber) *member {
	m := &member{
		sub:   sub,
		queue: make(chan []byte, memberQueueSize),
		done:  make(chan struct{}),
	}
	go m.drain()
	return m
}

func (m *member) drain() {
	for {
		select {
		case payload := <-m.queue:
			m.sub.Deliver(payload)
		case <-m.done:
			return
		}
	}
}

func (m *member) stop() {
	close(m.done)
}

// MemoryBus is the in-process Bus driver: a mutex-guarded registry of
// topic -> subscriber set. It is the default when no broker is configured.
type MemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*member
	closed bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		topics: make(map[string]map[string]*member),
	}
}

// Subscribe registers the handle under topic. Re-subscribing the same ID
// keeps the existing registration.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, sub *Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	members, ok := b.topics[topic]
	if !ok {
		members = make(map[string]*member)
		b.topics[topic] = members
	}
	if _, exists := members[sub.ID]; exists {
		return nil
	}
	members[sub.ID] = newMember(sub)
	return nil
}

// Unsubscribe removes the handle; unknown handles are a no-op.
func (b *MemoryBus) Unsubscribe(_ context.Context, topic, subscriberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		return nil
	}
	m, exists := members[subscriberID]
	if !exists {
		return nil
	}
	m.stop()
	delete(members, subscriberID)
	if len(members) == 0 {
		delete(b.topics, topic)
	}
	return nil
}

// Publish enqueues the payload for every current member of topic. Members
// whose queue is full are skipped.
func (b *MemoryBus) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, m := range b.topics[topic] {
		select {
		case m.queue <- payload:
		default:
			// Slow consumer; drop for this member only.
		}
	}
	return nil
}

// Close stops all member drains and clears the registry.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, members := range b.topics {
		for _, m := range members {
			m.stop()
		}
	}
	b.topics = make(map[string]map[string]*member)
	b.closed = true
	return nil
}
