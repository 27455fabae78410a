// Package session stores widget sessions. Sessions are a convenience cache
// with an idle expiry, not a system of record.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkindrix/fitai/internal/clock"
	"github.com/jkindrix/fitai/internal/domain"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	session   *domain.Session
	expiresAt time.Time
}

var _ domain.SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose entries expire ttl after their last
// Put. A nil clock uses the system clock.
func NewMemoryStore(ttl time.Duration, c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.New()
	}
	return &MemoryStore{
		ttl:     ttl,
		clock:   c,
		entries: make(map[uuid.UUID]memoryEntry),
	}
}

// Get returns a copy of the session.
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.session.Clone(), nil
}

// Put stores a copy of s and refreshes its expiry.
func (m *MemoryStore) Put(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[s.ID] = memoryEntry{
		session:   s.Clone(),
		expiresAt: m.clock.Now().Add(m.ttl),
	}
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// Sweep removes expired sessions.
func (m *MemoryStore) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	n := 0
	for id, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

// Len counts sessions that have not expired.
func (m *MemoryStore) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	n := 0
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops every session.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uuid.UUID]memoryEntry)
	return nil
}
