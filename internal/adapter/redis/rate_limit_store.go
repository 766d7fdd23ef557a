package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
)

const rateLimitOpTimeout = 200 * time.Millisecond

// RateLimitStore is a fixed-window request counter shared by all instances.
// When Redis cannot answer, decisions fall back to the per-instance store so
// an outage degrades to local limits instead of rejecting or admitting everyone.
type RateLimitStore struct {
	rdb      goredis.Cmdable
	clock    clockwork.Clock
	limit    int64
	window   time.Duration
	fallback middleware.RateLimiterStore
}

var _ middleware.RateLimiterStore = (*RateLimitStore)(nil)

// MinRateLimitWindow is the shortest window. Shorter windows are raised to it
// since EXPIRE takes whole seconds and window keys need a non-zero divisor.
const MinRateLimitWindow = time.Second

// NewRateLimitStore allows limit requests per window per identifier.
func NewRateLimitStore(rdb goredis.Cmdable, clock clockwork.Clock, limit int, window time.Duration, fallback middleware.RateLimiterStore) *RateLimitStore {
	window = max(window, MinRateLimitWindow)
	return &RateLimitStore{
		rdb:      rdb,
		clock:    clock,
		limit:    int64(limit),
		window:   window,
		fallback: fallback,
	}
}

func (s *RateLimitStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rateLimitOpTimeout)
	defer cancel()

	count, err := s.increment(ctx, identifier)
	if err != nil {
		slog.Warn("Redis rate limit unavailable, using local limiter", "error", err)
		return s.fallback.Allow(identifier)
	}
	return count <= s.limit, nil
}

func (s *RateLimitStore) increment(ctx context.Context, identifier string) (int64, error) {
	key := s.key(identifier)

	var incr *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("rate limit increment: %w", err)
	}
	return incr.Val(), nil
}

// key buckets requests into the current window.
func (s *RateLimitStore) key(identifier string) string {
	windowStart := s.clock.Now().UnixMilli() / s.window.Milliseconds()
	return fmt.Sprintf("rate_limit:http:%s:%d", identifier, windowStart)
}
