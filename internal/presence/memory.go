package presence

import (
	"context"
	"sort"
	"sync"
)

// MemoryRegistry is the in-process Registry driver.
type MemoryRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewMemoryRegistry creates an empty in-memory presence registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds name to the room's active set.
func (r *MemoryRegistry) Join(_ context.Context, room, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, ok := r.rooms[room]
	if !ok {
		names = make(map[string]struct{})
		r.rooms[room] = names
	}
	names[name] = struct{}{}
	return nil
}

// Leave removes name from the room's active set. Unknown names are a no-op.
func (r *MemoryRegistry) Leave(_ context.Context, room, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, ok := r.rooms[room]
	if !ok {
		return nil
	}
	delete(names, name)
	if len(names) == 0 {
		delete(r.rooms, room)
	}
	return nil
}

// List returns the room's active names, sorted for stable output.
func (r *MemoryRegistry) List(_ context.Context, room string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.rooms[room]))
	for name := range r.rooms[room] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close clears the registry.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = make(map[string]map[string]struct{})
	return nil
}
