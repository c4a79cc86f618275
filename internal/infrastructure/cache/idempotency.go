package cache

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore remembers processed keys (task ids) for a while so a
// redelivered task can be skipped
type IdempotencyStore interface {
	// MarkProcessed records key; it returns false when key was already recorded
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// pruneThreshold is the entry count above which expired keys are swept on write
const pruneThreshold = 4096

// InMemoryIdempotencyStore implements IdempotencyStore using an in-memory map
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	now     func() time.Time
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

var _ IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// MarkProcessed records key until now+ttl
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.entries[key]; ok && now.Before(expiry) {
		return false, nil
	}
	if len(s.entries) >= pruneThreshold {
		for k, expiry := range s.entries {
			if !now.Before(expiry) {
				delete(s.entries, k)
			}
		}
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// Size returns the number of entries in the store
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisIdempotencyStore implements IdempotencyStore with SET NX so every
// instance sharing the Redis server sees the same processed keys
type RedisIdempotencyStore struct {
	client    redisSetNXer
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store over an existing client
func NewRedisIdempotencyStore(client redisSetNXer, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = "task:processed:"
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)

// MarkProcessed uses SET NX with TTL in a single atomic operation
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.keyPrefix+key, "1", ttl).Result()
}
