// Package ratelimit caps generative model spend.
package ratelimit

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
)

// Window names, used as metric labels.
const (
	WindowConcurrent = "concurrent"
	WindowMinute     = "minute"
	WindowHour       = "hour"
	WindowDay        = "day"
)

var (
	ErrMinuteLimitExceeded     = errors.New("minute generation limit exceeded")
	ErrHourLimitExceeded       = errors.New("hour generation limit exceeded")
	ErrDayLimitExceeded        = errors.New("day generation limit exceeded")
	ErrConcurrentLimitExceeded = errors.New("concurrent generation limit exceeded")
)

// WindowOf returns the window label for a limiter error, or "" if err is not
// one.
func WindowOf(err error) string {
	switch {
	case errors.Is(err, ErrConcurrentLimitExceeded):
		return WindowConcurrent
	case errors.Is(err, ErrMinuteLimitExceeded):
		return WindowMinute
	case errors.Is(err, ErrHourLimitExceeded):
		return WindowHour
	case errors.Is(err, ErrDayLimitExceeded):
		return WindowDay
	default:
		return ""
	}
}

// Config holds generation limits. A zero limit disables that window.
type Config struct {
	PerMinute     int
	PerHour       int
	PerDay        int
	MaxConcurrent int
}

// GenerationLimiter hands out slots for model calls. A call that cannot get
// a slot is answered from the fallback table instead of waiting.
type GenerationLimiter struct {
	mu sync.Mutex

	cfg    Config
	clock  clock.Clock
	logger *zap.Logger

	minute *window
	hour   *window
	day    *window
	active int

	totalAcquired int64
	totalRejected int64
	lastRejection string
}

// NewGenerationLimiter creates a limiter. A nil clock uses the system clock.
func NewGenerationLimiter(cfg Config, c clock.Clock, logger *zap.Logger) *GenerationLimiter {
	if c == nil {
		c = clock.New()
	}
	now := c.Now()
	return &GenerationLimiter{
		cfg:    cfg,
		clock:  c,
		logger: logger,
		minute: newWindow(cfg.PerMinute, time.Minute, now),
		hour:   newWindow(cfg.PerHour, time.Hour, now),
		day:    newWindow(cfg.PerDay, 24*time.Hour, now),
	}
}

// Acquire takes a slot or returns the error for the first exhausted window.
// Every successful Acquire must be paired with Release.
func (l *GenerationLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	if l.cfg.MaxConcurrent > 0 && l.active >= l.cfg.MaxConcurrent {
		return l.reject(ErrConcurrentLimitExceeded)
	}
	if !l.minute.take(now) {
		return l.reject(ErrMinuteLimitExceeded)
	}
	if !l.hour.take(now) {
		l.minute.give()
		return l.reject(ErrHourLimitExceeded)
	}
	if !l.day.take(now) {
		l.minute.give()
		l.hour.give()
		return l.reject(ErrDayLimitExceeded)
	}

	l.active++
	l.totalAcquired++
	return nil
}

// Release frees a concurrent slot.
func (l *GenerationLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active > 0 {
		l.active--
	}
}

// reject must be called with mu held.
func (l *GenerationLimiter) reject(err error) error {
	l.totalRejected++
	l.lastRejection = WindowOf(err)
	l.logger.Warn("generation limit reached",
		zap.String("window", l.lastRejection),
		zap.Int64("total_rejected", l.totalRejected),
	)
	return err
}

// Stats is a snapshot of limiter state.
type Stats struct {
	Active          int    `json:"active"`
	MinuteRemaining int    `json:"minute_remaining"`
	HourRemaining   int    `json:"hour_remaining"`
	DayRemaining    int    `json:"day_remaining"`
	TotalAcquired   int64  `json:"total_acquired"`
	TotalRejected   int64  `json:"total_rejected"`
	LastRejection   string `json:"last_rejection,omitempty"`
}

// Stats returns current counters. Remaining is -1 for a disabled window.
func (l *GenerationLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	return Stats{
		Active:          l.active,
		MinuteRemaining: l.minute.remaining(now),
		HourRemaining:   l.hour.remaining(now),
		DayRemaining:    l.day.remaining(now),
		TotalAcquired:   l.totalAcquired,
		TotalRejected:   l.totalRejected,
		LastRejection:   l.lastRejection,
	}
}

// window is a fixed-window counter that refills completely once per period.
type window struct {
	max     int
	period  time.Duration
	tokens  int
	resetAt time.Time
}

func newWindow(limit int, period time.Duration, now time.Time) *window {
	return &window{max: limit, period: period, tokens: limit, resetAt: now.Add(period)}
}

func (w *window) refill(now time.Time) {
	if !now.Before(w.resetAt) {
		w.tokens = w.max
		w.resetAt = now.Add(w.period)
	}
}

func (w *window) take(now time.Time) bool {
	if w.max <= 0 {
		return true
	}
	w.refill(now)
	if w.tokens == 0 {
		return false
	}
	w.tokens--
	return true
}

func (w *window) give() {
	if w.max > 0 && w.tokens < w.max {
		w.tokens++
	}
}

func (w *window) remaining(now time.Time) int {
	if w.max <= 0 {
		return -1
	}
	w.refill(now)
	return w.tokens
}
