package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/jackc/pgx/v5"
)

// MetricsTracer records query duration and errors, labelled by statement verb
// to keep cardinality bounded.
type MetricsTracer struct {
	m *metrics.DBMetrics
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(m *metrics.DBMetrics) *MetricsTracer {
	return &MetricsTracer{m: m}
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	verb  string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{start: time.Now(), verb: statementVerb(data.SQL)})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	t.m.QueryDuration.WithLabelValues(qctx.verb).Observe(time.Since(qctx.start).Seconds())
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		t.m.QueryErrors.WithLabelValues(qctx.verb).Inc()
	}
}

// statementVerb returns the lower-cased first keyword of sql, skipping
// leading whitespace and line comments.
func statementVerb(sql string) string {
	for {
		sql = strings.TrimLeft(sql, " \t\r\n")
		if !strings.HasPrefix(sql, "--") {
			break
		}
		nl := strings.IndexByte(sql, '\n')
		if nl < 0 {
			return "unknown"
		}
		sql = sql[nl+1:]
	}

	end := strings.IndexAny(sql, " \t\r\n(;")
	if end < 0 {
		end = len(sql)
	}
	verb := strings.ToLower(sql[:end])
	switch verb {
	case "select", "insert", "update", "delete", "with", "begin", "commit", "rollback":
		return verb
	case "":
		return "unknown"
	default:
		return "other"
	}
}
