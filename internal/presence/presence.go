// Package presence tracks which display names are currently connected to a
// room. A users_update broadcast only signals that this set changed;
// clients fetch the actual member list out of band.
package presence

import "context"

// Registry is the per-room set of active participants.
type Registry interface {
	Join(ctx context.Context, room, name string) error
	Leave(ctx context.Context, room, name string) error
	List(ctx context.Context, room string) ([]string, error)
	Close() error
}
