package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
)

// Sweeper evicts expired sessions on an interval and keeps the active
// session gauge current.
type Sweeper struct {
	store    domain.SessionStore
	interval time.Duration
	clock    clock.Clock
	metrics  *metrics.Metrics
	logger   *zap.Logger

	afterSweep func(evicted int)
}

// NewSweeper creates a sweeper. A nil clock uses the system clock.
func NewSweeper(store domain.SessionStore, interval time.Duration, c clock.Clock, m *metrics.Metrics, logger *zap.Logger) *Sweeper {
	if c == nil {
		c = clock.New()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		clock:    c,
		metrics:  m,
		logger:   logger.Named("session_sweeper"),
	}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C():
			n := s.SweepOnce(ctx)
			if s.afterSweep != nil {
				s.afterSweep(n)
			}
		}
	}
}

// SweepOnce evicts expired sessions and returns how many were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
		return 0
	}
	s.metrics.RecordSessionsEvicted(n)
	if n > 0 {
		s.logger.Debug("evicted expired sessions", zap.Int("count", n))
	}

	if live, err := s.store.Len(ctx); err == nil {
		s.metrics.SetActiveSessions(live)
	}
	return n
}
