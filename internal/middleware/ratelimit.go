package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/fitai/internal/clock"
	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/metrics"
)

// RateLimiter allows a fixed number of requests per window for each client IP.
type RateLimiter struct {
	name   string
	rate   int
	window time.Duration
	clock  clock.Clock
	logger *zap.Logger

	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter. name labels its metrics and events. Call
// Run to evict idle clients.
func NewRateLimiter(
	name string,
	rate int,
	window time.Duration,
	c clock.Clock,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *RateLimiter {
	if c == nil {
		c = clock.New()
	}
	if events == nil {
		events = metrics.NewBusinessEventLogger(logger)
	}
	return &RateLimiter{
		name:     name,
		rate:     rate,
		window:   window,
		clock:    c,
		logger:   logger,
		metrics:  m,
		events:   events,
		visitors: make(map[string]*visitor),
	}
}

// Run evicts idle clients every two windows until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := rl.clock.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	removed := 0
	for ip, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

// allow takes a token for ip. It returns the tokens left and, when
// rejected, how long until the window resets.
func (rl *RateLimiter) allow(ip string) (remaining int, retryAfter time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) >= rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return rl.rate - 1, 0, true
	}

	if v.tokens > 0 {
		v.tokens--
		return v.tokens, 0, true
	}
	return 0, rl.window - now.Sub(v.lastReset), false
}

// Middleware rejects clients over their limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)

		remaining, retryAfter, ok := rl.allow(ip)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			rl.metrics.RecordRateLimitHit(rl.name)
			rl.events.RateLimitExceeded(r.Context(), rl.name, ip)
			LoggerWithCorrelation(r.Context(), rl.logger).Warn("rate limit exceeded",
				zap.String("limiter", rl.name),
				zap.String("path", r.URL.Path),
			)

			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, apperrors.CodeRateLimited, "too many requests, please slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP address from a request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
