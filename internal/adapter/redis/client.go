// Package redis holds the Redis-backed adapters: the shared HTTP rate limit
// store and the L2 layer of the entitlement tier cache.
package redis

import (
	"fmt"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses redisURL and returns a client with the metrics and circuit
// breaker hooks installed. m may be nil.
func NewClient(redisURL string, m *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	rdb.AddHook(NewMetricsHook(m))
	rdb.AddHook(NewCircuitBreakerHook(m))
	return rdb, nil
}
