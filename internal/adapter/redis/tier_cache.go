package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	tierCacheTTL     = 10 * time.Minute
	DefaultMemoryTTL = 30 * time.Second
)

type TierLoader interface {
	GetTier(ctx context.Context, id uuid.UUID) (domain.Tier, error)
}

// TierCache resolves a user's tier through an in-process map, then Redis, then
// the database. rdb may be nil for single-instance deployments.
type TierCache struct {
	rdb     goredis.Cmdable
	loader  TierLoader
	mem     *memoryCache
	clock   clockwork.Clock
	metrics *metrics.CacheMetrics
	group   singleflight.Group
}

var _ domain.TierCache = (*TierCache)(nil)

func NewTierCache(rdb goredis.Cmdable, loader TierLoader, memTTL time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *TierCache {
	return &TierCache{
		rdb:     rdb,
		loader:  loader,
		mem:     newMemoryCache(memTTL, clock),
		clock:   clock,
		metrics: m,
	}
}

// StartEvictionTimer periodically drops expired in-memory entries. The
// returned function stops it.
func (c *TierCache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					c.metrics.Evicted(evicted)
					slog.Debug("Evicted expired tier cache entries", "count", evicted, "remaining", c.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (c *TierCache) Get(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	if tier, ok := c.mem.get(userID); ok {
		c.metrics.Hit("memory")
		return tier, nil
	}
	c.metrics.Miss("memory")

	v, err, shared := c.group.Do(userID.String(), func() (any, error) {
		return c.load(ctx, userID)
	})
	if shared {
		c.metrics.Shared()
	}
	if err != nil {
		return "", err
	}
	return v.(domain.Tier), nil
}

func (c *TierCache) load(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	if tier, ok := c.getCached(ctx, userID); ok {
		c.metrics.Hit("redis")
		c.mem.set(userID, tier)
		return tier, nil
	}
	c.metrics.Miss("redis")

	tier, err := c.loader.GetTier(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("tier lookup failed: %w", err)
	}

	c.mem.set(userID, tier)
	c.writeCache(ctx, userID, tier)
	return tier, nil
}

// Invalidate drops the entry locally and in Redis. Other instances keep their
// in-memory copy until its short TTL runs out.
func (c *TierCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	c.mem.invalidate(userID)
	c.metrics.Invalidated()
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, tierCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tier cache: %w", err)
	}
	return nil
}

func (c *TierCache) getCached(ctx context.Context, userID uuid.UUID) (domain.Tier, bool) {
	if c.rdb == nil {
		return "", false
	}

	raw, err := c.rdb.Get(ctx, tierCacheKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis tier cache GET failed", "user_id", userID, "error", err)
		}
		return "", false
	}

	tier, err := domain.ParseTier(raw)
	if err != nil {
		slog.Warn("Discarding malformed cached tier", "user_id", userID, "value", raw)
		return "", false
	}
	return tier, true
}

func (c *TierCache) writeCache(ctx context.Context, userID uuid.UUID, tier domain.Tier) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, tierCacheKey(userID), string(tier), tierCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate Redis tier cache", "user_id", userID, "error", err)
	}
}

func tierCacheKey(userID uuid.UUID) string {
	return "tier_cache:" + userID.String()
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	tier      domain.Tier
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[uuid.UUID]memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(id uuid.UUID) (domain.Tier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.tier, true
}

func (c *memoryCache) set(id uuid.UUID, tier domain.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryCacheEntry{tier: tier, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *memoryCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			evicted++
		}
	}
	return evicted
}
