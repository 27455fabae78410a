// Package database manages the PostgreSQL pool behind the postgres lead
// store and applies its schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/config"
)

// DB is an open pool with its query tracer.
type DB struct {
	Pool   *pgxpool.Pool
	Tracer *QueryLogger
	logger *zap.Logger
}

// New opens a pool for cfg and pings it.
func New(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	tracer := NewQueryLogger(nil, nil, logger)
	pc, err := poolConfig(cfg, tracer)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", pc.MaxConns),
	)
	return &DB{Pool: pool, Tracer: tracer, logger: logger}, nil
}

// poolConfig maps the database section onto pgxpool settings. Zero values
// keep the pgxpool defaults.
func poolConfig(cfg *config.DatabaseConfig, tracer *QueryLogger) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		pc.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		pc.MinConns = int32(min(cfg.MaxIdleConnections, int(pc.MaxConns)))
	}
	if cfg.ConnectionMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnectionMaxLifetime
	}
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.HealthCheckPeriod = time.Minute
	pc.ConnConfig.Tracer = tracer
	return pc, nil
}

// Close closes the pool and logs the query totals.
func (db *DB) Close() error {
	if db.Pool == nil {
		return nil
	}
	db.Pool.Close()
	s := db.Tracer.Stats()
	db.logger.Info("postgres pool closed",
		zap.Int64("queries", s.Total),
		zap.Int64("slow_queries", s.Slow),
		zap.Int64("failed_queries", s.Failed),
	)
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
