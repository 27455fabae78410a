package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/config"
	"github.com/jkindrix/fitai/internal/database"
	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
)

// LeadStore is an opened lead repository together with the connection it
// runs on.
type LeadStore struct {
	domain.LeadRepository
	// DB is set for the postgres driver.
	DB *database.DB

	ping  func(ctx context.Context) error
	close func() error
}

// Ping checks the underlying storage.
func (s *LeadStore) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the underlying storage.
func (s *LeadStore) Close() error {
	return s.close()
}

// Open opens the lead store selected by cfg.Storage.Driver. For postgres the
// pending migrations are applied when migrate is true.
func Open(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger, m *metrics.Metrics) (*LeadStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		r := NewMemoryLeadRepository()
		return &LeadStore{LeadRepository: r, ping: r.Ping, close: r.Close}, nil

	case config.DriverSQLite:
		r, err := NewSQLiteLeadRepository(cfg.Storage.SQLitePath, m)
		if err != nil {
			return nil, fmt.Errorf("open sqlite lead store: %w", err)
		}
		logger.Info("sqlite lead store opened", zap.String("path", cfg.Storage.SQLitePath))
		return &LeadStore{LeadRepository: r, ping: r.Ping, close: r.Close}, nil

	case config.DriverPostgres:
		db, err := database.New(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if _, err := database.NewMigrator(db.Pool, logger).Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		r := NewPostgresLeadRepository(db.Pool, m)
		return &LeadStore{LeadRepository: r, DB: db, ping: db.Ping, close: db.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
