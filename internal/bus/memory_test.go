package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// collector is a test subscriber that records delivered payloads.
type collector struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *collector) deliver(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *collector) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.payloads))
	copy(out, c.payloads)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPublishReachesAllMembersIncludingPublisher(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	var a, c collector
	if err := b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "a", Deliver: a.deliver}); err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	if err := b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "c", Deliver: c.deliver}); err != nil {
		t.Fatalf("subscribe c: %v", err)
	}

	if err := b.Publish(ctx, "chat_r1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	// Both members see the frame; the sender's own handle is not special.
	waitFor(t, func() bool { return len(a.snapshot()) == 1 && len(c.snapshot()) == 1 })
	if string(a.snapshot()[0]) != "hello" {
		t.Fatalf("unexpected payload: %q", a.snapshot()[0])
	}
}

func TestPublishDoesNotCrossTopics(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	var a, c collector
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "a", Deliver: a.deliver})
	_ = b.Subscribe(ctx, "chat_r2", &Subscriber{ID: "c", Deliver: c.deliver})

	_ = b.Publish(ctx, "chat_r1", []byte("only r1"))

	waitFor(t, func() bool { return len(a.snapshot()) == 1 })
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("expected no cross-topic delivery, got %d frames", len(got))
	}
}

func TestPerSubscriberFIFO(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	var c collector
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "c", Deliver: c.deliver})

	const n = 50
	for i := 0; i < n; i++ {
		_ = b.Publish(ctx, "chat_r1", []byte(fmt.Sprintf("m%03d", i)))
	}

	waitFor(t, func() bool { return len(c.snapshot()) == n })
	for i, payload := range c.snapshot() {
		if want := fmt.Sprintf("m%03d", i); string(payload) != want {
			t.Fatalf("frame %d: got %q, want %q", i, payload, want)
		}
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	var c collector
	sub := &Subscriber{ID: "c", Deliver: c.deliver}
	_ = b.Subscribe(ctx, "chat_r1", sub)
	_ = b.Subscribe(ctx, "chat_r1", sub)

	_ = b.Publish(ctx, "chat_r1", []byte("once"))

	waitFor(t, func() bool { return len(c.snapshot()) >= 1 })
	time.Sleep(20 * time.Millisecond)
	if got := len(c.snapshot()); got != 1 {
		t.Fatalf("expected single delivery after double subscribe, got %d", got)
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	var a, c collector
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "a", Deliver: a.deliver})
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "c", Deliver: c.deliver})

	if err := b.Unsubscribe(ctx, "chat_r1", "c"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := b.Unsubscribe(ctx, "chat_r1", "c"); err != nil {
		t.Fatalf("unsubscribe again: %v", err)
	}
	if err := b.Unsubscribe(ctx, "chat_ghost", "nobody"); err != nil {
		t.Fatalf("unsubscribe unknown topic: %v", err)
	}

	_ = b.Publish(ctx, "chat_r1", []byte("after"))

	waitFor(t, func() bool { return len(a.snapshot()) == 1 })
	if got := len(c.snapshot()); got != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", got)
	}
}

func TestSlowMemberDoesNotBlockOthers(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	ctx := context.Background()

	// A member whose deliver callback never returns fills its queue and
	// then gets dropped frames; the healthy member keeps receiving.
	block := make(chan struct{})
	defer close(block)
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "stuck", Deliver: func([]byte) { <-block }})

	var healthy collector
	_ = b.Subscribe(ctx, "chat_r1", &Subscriber{ID: "ok", Deliver: healthy.deliver})

	for i := 0; i < memberQueueSize*2; i++ {
		_ = b.Publish(ctx, "chat_r1", []byte("x"))
	}

	waitFor(t, func() bool { return len(healthy.snapshot()) == memberQueueSize*2 })
}
