package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
)

// DefaultSummaryTTL is used when a cache is built with a zero TTL
const DefaultSummaryTTL = 10 * time.Minute

type summaryEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemorySummaryCache implements finance.SummaryCache in process memory.
// Suitable for single-instance deployments and tests.
type InMemorySummaryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]map[string]summaryEntry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

// InMemorySummaryCacheOption configures an InMemorySummaryCache
type InMemorySummaryCacheOption func(*InMemorySummaryCache)

// WithClock overrides the time source used for expiry
func WithClock(now func() time.Time) InMemorySummaryCacheOption {
	return func(c *InMemorySummaryCache) {
		c.now = now
	}
}

// NewInMemorySummaryCache creates an empty cache whose entries live for ttl
func NewInMemorySummaryCache(ttl time.Duration, opts ...InMemorySummaryCacheOption) *InMemorySummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	c := &InMemorySummaryCache{
		entries: make(map[uuid.UUID]map[string]summaryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ finance.SummaryCache = (*InMemorySummaryCache)(nil)

// Get returns a live entry; expired entries count as misses
func (c *InMemorySummaryCache) Get(ctx context.Context, userID uuid.UUID, field string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[userID][field]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}
	atomic.AddInt64(&c.hits, 1)
	return e.value, true, nil
}

// Set stores a copy of value
func (c *InMemorySummaryCache) Set(ctx context.Context, userID uuid.UUID, field string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	fields, ok := c.entries[userID]
	if !ok {
		fields = make(map[string]summaryEntry)
		c.entries[userID] = fields
	}
	fields[field] = summaryEntry{value: stored, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// InvalidateUsers removes every field of each user
func (c *InMemorySummaryCache) InvalidateUsers(ctx context.Context, userIDs []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *InMemorySummaryCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
