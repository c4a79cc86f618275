package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/schoolpay/backend/internal/domain/finance"
)

// DefaultSummaryKeyPrefix prefixes the per-user hash key
const DefaultSummaryKeyPrefix = "summary:"

// invalidateBatchSize bounds the keys passed to one DEL
const invalidateBatchSize = 500

// RedisSummaryCache implements finance.SummaryCache with one Redis hash per
// user: key {prefix}{userID}, field {kind}:{scope}. The TTL is applied to
// the whole hash on every write.
type RedisSummaryCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSummaryCache creates a cache over an existing client
func NewRedisSummaryCache(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisSummaryCache {
	if keyPrefix == "" {
		keyPrefix = DefaultSummaryKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &RedisSummaryCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

var _ finance.SummaryCache = (*RedisSummaryCache)(nil)

func (c *RedisSummaryCache) key(userID uuid.UUID) string {
	return c.keyPrefix + userID.String()
}

// Get reads one field of the user's hash
func (c *RedisSummaryCache) Get(ctx context.Context, userID uuid.UUID, field string) ([]byte, bool, error) {
	value, err := c.client.HGet(ctx, c.key(userID), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read summary cache: %w", err)
	}
	return value, true, nil
}

// Set writes the field and refreshes the hash TTL atomically
func (c *RedisSummaryCache) Set(ctx context.Context, userID uuid.UUID, field string, value []byte) error {
	key := c.key(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write summary cache: %w", err)
	}
	return nil
}

// InvalidateUsers deletes the hashes of every user in batches of DEL calls
func (c *RedisSummaryCache) InvalidateUsers(ctx context.Context, userIDs []uuid.UUID) error {
	for start := 0; start < len(userIDs); start += invalidateBatchSize {
		end := min(start+invalidateBatchSize, len(userIDs))
		keys := make([]string, 0, end-start)
		for _, id := range userIDs[start:end] {
			keys = append(keys, c.key(id))
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate summary cache: %w", err)
		}
	}
	return nil
}
