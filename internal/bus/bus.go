// Package bus provides topic-based fan-out of encoded chat frames to live
// subscriber handles. The payload is opaque to the bus; the chat layer
// encodes an outbound frame once and every subscriber receives the same
// bytes in per-subscriber FIFO order.
package bus

import "context"

// Subscriber is a lightweight handle to one connection's delivery path.
// Deliver hands the subscriber an encoded frame; it must not block for
// long, and it may be invoked from a goroutine owned by the bus.
type Subscriber struct {
	ID      string
	Deliver func(payload []byte)
}

// Bus maintains per-topic subscriber sets and fans out published payloads.
//
// Guarantees common to all drivers:
//   - Subscribe is idempotent per subscriber ID.
//   - Unsubscribe of an unknown handle is a no-op.
//   - Publish delivers to every currently registered handle, including the
//     publisher if self-subscribed. A dead or slow handle is skipped
//     silently and never aborts delivery to other handles.
//   - Two payloads published on one topic from one goroutine reach each
//     individual subscriber in publish order.
type Bus interface {
	Subscribe(ctx context.Context, topic string, sub *Subscriber) error
	Unsubscribe(ctx context.Context, topic, subscriberID string) error
	Publish(ctx context.Context, topic string, payload []byte) error

	// Close releases driver resources. Pending deliveries may be dropped.
	Close() error
}
