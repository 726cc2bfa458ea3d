package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
)

// RedisStore keeps the queue document under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	owned  bool

	mu     sync.RWMutex
	closed bool
}

// NewRedisStore wraps an existing client. The caller keeps ownership of the
// client; Close does not close it. An empty key uses DefaultKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{client: client, key: key}
}

// DialRedisStore connects to addr and verifies the connection.
// The returned store owns the client.
func DialRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	s := NewRedisStore(client, key)
	s.owned = true
	return s, nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.ErrStoreClosed
	}

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.ErrStoreClosed
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.client.Close()
	}
	return nil
}
