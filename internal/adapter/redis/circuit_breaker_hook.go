package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"
)

// CircuitBreakerHook fails Redis calls fast while Redis is unhealthy. Every
// caller in this package has a fallback (local rate limiting, Postgres for
// tiers), so an open breaker degrades instead of stalling requests.
type CircuitBreakerHook struct {
	cb circuitbreaker.CircuitBreaker[any]
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook opens at a 60% failure rate over at least 5 calls in
// 10s, and probes again after 30s.
func NewCircuitBreakerHook(m *metrics.RedisMetrics) *CircuitBreakerHook {
	return newCircuitBreakerHook(m, 30*time.Second)
}

func newCircuitBreakerHook(m *metrics.RedisMetrics, delay time.Duration) *CircuitBreakerHook {
	if m != nil {
		m.CircuitBreakerState.WithLabelValues("redis").Set(0)
	}

	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "redis",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if m != nil {
				m.CircuitBreakerState.WithLabelValues("redis").Set(stateToFloat(e.NewState))
			}
		}).
		Build()

	return &CircuitBreakerHook{cb: cb}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if !h.cb.TryAcquirePermit() {
			return nil, fmt.Errorf("redis dial: %w", circuitbreaker.ErrOpen)
		}
		conn, err := next(ctx, network, addr)
		h.record(err)
		return conn, err
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			err := fmt.Errorf("redis %s: %w", cmd.Name(), circuitbreaker.ErrOpen)
			cmd.SetErr(err)
			return err
		}
		err := next(ctx, cmd)
		h.record(err)
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		if !h.cb.TryAcquirePermit() {
			err := fmt.Errorf("redis pipeline: %w", circuitbreaker.ErrOpen)
			for _, cmd := range cmds {
				cmd.SetErr(err)
			}
			return err
		}
		err := next(ctx, cmds)
		h.record(err)
		return err
	}
}

// record counts a cache miss (redis.Nil) as success.
func (h *CircuitBreakerHook) record(err error) {
	if err != nil && !errors.Is(err, goredis.Nil) {
		h.cb.RecordError(err)
		return
	}
	h.cb.RecordSuccess()
}
