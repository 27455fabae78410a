// Package repository persists captured leads in memory, PostgreSQL or SQLite.
package repository

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("record not found")

// Default query timeouts.
const (
	DefaultQueryTimeout     = 5 * time.Second
	DefaultListQueryTimeout = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// Default and maximum page sizes for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// WithQueryTimeout bounds a single-row read.
func WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultQueryTimeout)
}

// WithListQueryTimeout bounds a paginated read.
func WithListQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultListQueryTimeout)
}

// WithWriteTimeout bounds an insert or update.
func WithWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultWriteTimeout)
}

// withTimeout keeps an earlier parent deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// normalizePage clamps list arguments to sane bounds.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
