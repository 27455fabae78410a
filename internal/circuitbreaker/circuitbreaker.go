// Package circuitbreaker stops calling a failing dependency for a while so
// that callers can degrade quickly instead of waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
)

// State is the breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast
	StateHalfOpen              // a few probe calls are allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds breaker settings.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests caps concurrent probes while half-open.
	HalfOpenMaxRequests int
	// IsFailure decides whether an error counts against the circuit.
	// Defaults to CountsAsFailure.
	IsFailure func(error) bool
	// OnStateChange is called with the lock held after every transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the settings used for the generative model client.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 2,
	}
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	mu sync.Mutex

	name   string
	config Config
	clock  clock.Clock
	logger *zap.Logger

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenRequests     int
	openedAt             time.Time
	lastStateChange      time.Time
	lastError            error

	totalRequests  int64
	totalFailures  int64
	totalRejected  int64
	totalSuccesses int64
}

// New creates a breaker. A nil config uses DefaultConfig and a nil clock uses
// the system clock.
func New(name string, cfg *Config, c clock.Clock, logger *zap.Logger) *CircuitBreaker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if c == nil {
		c = clock.New()
	}
	conf := *cfg
	if conf.IsFailure == nil {
		conf.IsFailure = CountsAsFailure
	}
	return &CircuitBreaker{
		name:            name,
		config:          conf,
		clock:           c,
		logger:          logger,
		state:           StateClosed,
		lastStateChange: c.Now(),
	}
}

// Execute runs fn unless the circuit is open. Errors from fn are returned
// unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateOpen:
		if cb.clock.Since(cb.openedAt) < cb.config.OpenTimeout {
			cb.totalRejected++
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenRequests = 1
		return nil
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenMaxRequests {
			cb.totalRejected++
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.config.IsFailure(err) {
		cb.totalFailures++
		cb.consecutiveFailures++
		cb.consecutiveSuccesses = 0
		cb.lastError = err

		switch cb.state {
		case StateClosed:
			if cb.consecutiveFailures >= cb.config.FailureThreshold {
				cb.logger.Warn("circuit breaker opened",
					zap.String("name", cb.name),
					zap.Int("consecutive_failures", cb.consecutiveFailures),
					zap.Error(err),
				)
				cb.transition(StateOpen)
			}
		case StateHalfOpen:
			cb.logger.Warn("circuit breaker reopened", zap.String("name", cb.name), zap.Error(err))
			cb.transition(StateOpen)
		}
		return
	}

	cb.totalSuccesses++
	cb.consecutiveSuccesses++
	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen && cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
		cb.logger.Info("circuit breaker closed", zap.String("name", cb.name))
		cb.transition(StateClosed)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.lastStateChange = cb.clock.Now()
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenRequests = 0
	if to == StateOpen {
		cb.openedAt = cb.lastStateChange
	}
	if cb.config.OnStateChange != nil && from != to {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// State returns the current state without advancing open to half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen reports whether calls are currently being rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Stats is a snapshot of breaker counters for health output.
type Stats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	TotalRequests       int64     `json:"total_requests"`
	TotalSuccesses      int64     `json:"total_successes"`
	TotalFailures       int64     `json:"total_failures"`
	TotalRejected       int64     `json:"total_rejected"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastStateChange     time.Time `json:"last_state_change"`
	LastError           string    `json:"last_error,omitempty"`
}

// Stats returns a snapshot of the breaker counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{
		Name:                cb.name,
		State:               cb.state.String(),
		TotalRequests:       cb.totalRequests,
		TotalSuccesses:      cb.totalSuccesses,
		TotalFailures:       cb.totalFailures,
		TotalRejected:       cb.totalRejected,
		ConsecutiveFailures: cb.consecutiveFailures,
		LastStateChange:     cb.lastStateChange,
	}
	if cb.lastError != nil {
		s.LastError = cb.lastError.Error()
	}
	return s
}

// Reset closes the circuit and clears the last error.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	cb.transition(StateClosed)
	cb.lastError = nil
	cb.logger.Info("circuit breaker reset", zap.String("name", cb.name), zap.String("from_state", from.String()))
}

// CountsAsFailure is the default failure classifier. Caller cancellation and
// the breaker's own rejections are not held against the dependency.
func CountsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return false
	}
	return true
}
