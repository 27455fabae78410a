// Package shutdown runs the server's graceful shutdown in ordered phases.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service is something that can be stopped gracefully.
type Service interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// ServiceFunc adapts a function to Service.
type ServiceFunc struct {
	ServiceName string
	ShutdownFn  func(ctx context.Context) error
}

func (s ServiceFunc) Name() string                       { return s.ServiceName }
func (s ServiceFunc) Shutdown(ctx context.Context) error { return s.ShutdownFn(ctx) }

// Phase orders shutdown work. Services in the same phase stop concurrently.
type Phase int

const (
	// PhaseDrain stops the HTTP server and waits for in-flight turns.
	PhaseDrain Phase = iota
	// PhaseWorkers stops background loops and waits for queued
	// notifications.
	PhaseWorkers
	// PhaseClose closes stores and flushes the logger.
	PhaseClose
)

var phases = []Phase{PhaseDrain, PhaseWorkers, PhaseClose}

func (p Phase) String() string {
	switch p {
	case PhaseDrain:
		return "drain"
	case PhaseWorkers:
		return "workers"
	case PhaseClose:
		return "close"
	default:
		return "unknown"
	}
}

// Config holds coordinator settings.
type Config struct {
	// Timeout bounds the whole shutdown, every phase included.
	Timeout time.Duration
}

// DefaultConfig returns a 30 second timeout.
func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}

// Coordinator stops registered services phase by phase.
type Coordinator struct {
	mu       sync.Mutex
	services map[Phase][]Service
	timeout  time.Duration
	logger   *zap.Logger

	started chan struct{}
	once    sync.Once
	done    chan struct{}
	err     error
}

// NewCoordinator creates a coordinator. A nil cfg uses DefaultConfig.
func NewCoordinator(cfg *Config, logger *zap.Logger) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Coordinator{
		services: make(map[Phase][]Service),
		timeout:  cfg.Timeout,
		logger:   logger.Named("shutdown"),
		started:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Register adds svc to phase.
func (c *Coordinator) Register(phase Phase, svc Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[phase] = append(c.services[phase], svc)
}

// RegisterFunc registers fn under name.
func (c *Coordinator) RegisterFunc(phase Phase, name string, fn func(ctx context.Context) error) {
	c.Register(phase, ServiceFunc{ServiceName: name, ShutdownFn: fn})
}

// Shutdown runs every phase once and returns the joined service errors.
// Later calls wait for the first run. The phases get the full timeout even
// if ctx is already done; ctx only bounds how long this call waits.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		close(c.started)
		go c.run()
	})

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Started is closed once shutdown begins.
func (c *Coordinator) Started() <-chan struct{} {
	return c.started
}

// Done is closed once every phase has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// ShuttingDown reports whether Shutdown has been called.
func (c *Coordinator) ShuttingDown() bool {
	select {
	case <-c.started:
		return true
	default:
		return false
	}
}

func (c *Coordinator) run() {
	defer close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Info("starting graceful shutdown", zap.Duration("timeout", c.timeout))

	var errs []error
	for _, phase := range phases {
		c.mu.Lock()
		services := append([]Service(nil), c.services[phase]...)
		c.mu.Unlock()
		if len(services) == 0 {
			continue
		}

		c.logger.Info("executing shutdown phase",
			zap.String("phase", phase.String()),
			zap.Int("services", len(services)),
		)
		errs = append(errs, c.runPhase(ctx, phase, services)...)

		if ctx.Err() != nil {
			c.logger.Error("shutdown timeout exceeded", zap.String("phase", phase.String()))
			errs = append(errs, fmt.Errorf("phase %s: %w", phase, ctx.Err()))
			break
		}
	}

	c.err = errors.Join(errs...)
	if c.err != nil {
		c.logger.Error("shutdown completed with errors", zap.Int("error_count", len(errs)), zap.Error(c.err))
		return
	}
	c.logger.Info("graceful shutdown complete")
}

func (c *Coordinator) runPhase(ctx context.Context, phase Phase, services []Service) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, svc := range services {
		wg.Add(1)
		go func(s Service) {
			defer wg.Done()

			start := time.Now()
			err := s.Shutdown(ctx)
			if err != nil {
				c.logger.Error("service shutdown failed",
					zap.String("service", s.Name()),
					zap.String("phase", phase.String()),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
				return
			}
			c.logger.Debug("service stopped",
				zap.String("service", s.Name()),
				zap.Duration("duration", time.Since(start)),
			)
		}(svc)
	}
	wg.Wait()
	return errs
}
