package database

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
)

// QueryLoggerConfig sets the slow query thresholds.
type QueryLoggerConfig struct {
	// SlowQueryThreshold logs at WARN.
	SlowQueryThreshold time.Duration
	// VerySlowQueryThreshold logs at ERROR.
	VerySlowQueryThreshold time.Duration
	// LogAllQueries logs fast queries at DEBUG.
	LogAllQueries bool
}

// DefaultQueryLoggerConfig returns the thresholds used in production.
func DefaultQueryLoggerConfig() *QueryLoggerConfig {
	return &QueryLoggerConfig{
		SlowQueryThreshold:     100 * time.Millisecond,
		VerySlowQueryThreshold: 500 * time.Millisecond,
	}
}

// QueryStats are running totals since the logger was created.
type QueryStats struct {
	Total    int64
	Slow     int64
	VerySlow int64
	Failed   int64
}

// QueryLogger is a pgx.QueryTracer that logs failed and slow queries.
type QueryLogger struct {
	config *QueryLoggerConfig
	clock  clock.Clock
	logger *zap.Logger

	total    atomic.Int64
	slow     atomic.Int64
	verySlow atomic.Int64
	failed   atomic.Int64
}

var _ pgx.QueryTracer = (*QueryLogger)(nil)

// NewQueryLogger creates a query logger. Nil cfg and clock use the defaults.
func NewQueryLogger(cfg *QueryLoggerConfig, c clock.Clock, logger *zap.Logger) *QueryLogger {
	if cfg == nil {
		cfg = DefaultQueryLoggerConfig()
	}
	if c == nil {
		c = clock.New()
	}
	return &QueryLogger{
		config: cfg,
		clock:  c,
		logger: logger.Named("query"),
	}
}

// Stats returns a snapshot of the counters.
func (ql *QueryLogger) Stats() QueryStats {
	return QueryStats{
		Total:    ql.total.Load(),
		Slow:     ql.slow.Load(),
		VerySlow: ql.verySlow.Load(),
		Failed:   ql.failed.Load(),
	}
}

type queryTrace struct {
	start time.Time
	sql   string
}

type traceKey struct{}

// TraceQueryStart implements pgx.QueryTracer.
func (ql *QueryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, &queryTrace{start: ql.clock.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (ql *QueryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, ok := ctx.Value(traceKey{}).(*queryTrace)
	if !ok {
		return
	}

	duration := ql.clock.Since(trace.start)
	ql.total.Add(1)

	if data.Err != nil {
		ql.failed.Add(1)
		ql.logger.Error("query failed",
			zap.String("sql", truncateSQL(trace.sql, 500)),
			zap.Duration("duration", duration),
			zap.Error(data.Err),
		)
		return
	}

	switch {
	case duration >= ql.config.VerySlowQueryThreshold:
		ql.verySlow.Add(1)
		ql.slow.Add(1)
		ql.logger.Error("very slow query detected",
			zap.String("sql", truncateSQL(trace.sql, 500)),
			zap.Duration("duration", duration),
			zap.Duration("threshold", ql.config.VerySlowQueryThreshold),
			zap.String("command_tag", data.CommandTag.String()),
		)
	case duration >= ql.config.SlowQueryThreshold:
		ql.slow.Add(1)
		ql.logger.Warn("slow query detected",
			zap.String("sql", truncateSQL(trace.sql, 500)),
			zap.Duration("duration", duration),
			zap.Duration("threshold", ql.config.SlowQueryThreshold),
			zap.String("command_tag", data.CommandTag.String()),
		)
	case ql.config.LogAllQueries:
		ql.logger.Debug("query executed",
			zap.String("sql", truncateSQL(trace.sql, 200)),
			zap.Duration("duration", duration),
		)
	}
}

func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen-3] + "..."
}
