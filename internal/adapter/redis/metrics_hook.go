package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook records per-command counts and latencies.
type MetricsHook struct {
	m *metrics.RedisMetrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(m *metrics.RedisMetrics) *MetricsHook {
	return &MetricsHook{m: m}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && h.m != nil {
			h.m.ConnectionErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), err, time.Since(start))
		return err
	}
}

// ProcessPipelineHook counts a pipeline as one operation.
func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.observe("pipeline", err, time.Since(start))
		return err
	}
}

func (h *MetricsHook) observe(operation string, err error, d time.Duration) {
	if h.m == nil {
		return
	}
	status := "success"
	if err != nil && !errors.Is(err, goredis.Nil) {
		status = "error"
	}
	h.m.OpsTotal.WithLabelValues(operation, status).Inc()
	h.m.OpDuration.WithLabelValues(operation).Observe(d.Seconds())
}
