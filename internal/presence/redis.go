package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is a Registry driver backed by Redis sets, for deployments
// where presence has to be visible across server instances.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry connects to the Redis server described by redisURL
// (redis://[user:pass@]host:port/db).
func NewRedisRegistry(ctx context.Context, redisURL string) (*RedisRegistry, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisRegistry{client: client}, nil
}

func roomKey(room string) string {
	return "presence:" + room
}

// Join adds name to the room's active set.
func (r *RedisRegistry) Join(ctx context.Context, room, name string) error {
	if err := r.client.SAdd(ctx, roomKey(room), name).Err(); err != nil {
		return fmt.Errorf("presence join: %w", err)
	}
	return nil
}

// Leave removes name from the room's active set.
func (r *RedisRegistry) Leave(ctx context.Context, room, name string) error {
	if err := r.client.SRem(ctx, roomKey(room), name).Err(); err != nil {
		return fmt.Errorf("presence leave: %w", err)
	}
	return nil
}

// List returns the room's active names, sorted for stable output.
func (r *RedisRegistry) List(ctx context.Context, room string) ([]string, error) {
	names, err := r.client.SMembers(ctx, roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence list: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the Redis connection.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
