package domain

import (
	"context"

	"github.com/google/uuid"
)

// LeadRepository persists captured leads.
type LeadRepository interface {
	// Save inserts lead, or updates the existing lead with the same
	// fingerprint. On update lead.ID and lead.CreatedAt are replaced with the
	// stored values.
	Save(ctx context.Context, lead *Lead) error

	// GetByID retrieves a lead by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Lead, error)

	// List returns leads, newest first.
	List(ctx context.Context, limit, offset int) ([]*Lead, error)

	// Count returns the number of stored leads.
	Count(ctx context.Context) (int, error)
}

// SessionStore keeps widget sessions between requests. Entries expire after
// a period of inactivity.
type SessionStore interface {
	// Get returns the session, or an error matching session.ErrNotFound if it
	// does not exist or has expired.
	Get(ctx context.Context, id uuid.UUID) (*Session, error)

	// Put stores s and refreshes its expiry.
	Put(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Sweep evicts expired sessions and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Len returns the number of live sessions.
	Len(ctx context.Context) (int, error)
}
