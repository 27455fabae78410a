package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkindrix/fitai/internal/domain"
)

// MemoryLeadRepository keeps leads in process memory. Leads are lost on
// restart.
type MemoryLeadRepository struct {
	mu            sync.RWMutex
	byID          map[uuid.UUID]*domain.Lead
	byFingerprint map[string]uuid.UUID
	// order holds IDs oldest first.
	order []uuid.UUID
}

var _ domain.LeadRepository = (*MemoryLeadRepository)(nil)

// NewMemoryLeadRepository creates an empty repository.
func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{
		byID:          make(map[uuid.UUID]*domain.Lead),
		byFingerprint: make(map[string]uuid.UUID),
	}
}

// Save inserts lead or updates the lead with the same fingerprint.
func (r *MemoryLeadRepository) Save(ctx context.Context, lead *domain.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byFingerprint[lead.Fingerprint]; ok {
		existing := r.byID[id]
		lead.ID = existing.ID
		lead.CreatedAt = existing.CreatedAt
		if lead.UpdatedAt.IsZero() {
			lead.UpdatedAt = time.Now().UTC()
		}
		stored := *lead
		r.byID[id] = &stored
		return nil
	}

	stored := *lead
	r.byID[lead.ID] = &stored
	r.byFingerprint[lead.Fingerprint] = lead.ID
	r.order = append(r.order, lead.ID)
	return nil
}

// GetByID returns a copy of the lead.
func (r *MemoryLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	out := *l
	return &out, nil
}

// List returns leads newest first.
func (r *MemoryLeadRepository) List(ctx context.Context, limit, offset int) ([]*domain.Lead, error) {
	limit, offset = normalizePage(limit, offset)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Lead, 0, limit)
	for i := len(r.order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		l := *r.byID[r.order[i]]
		out = append(out, &l)
	}
	return out, nil
}

// Count returns the number of leads.
func (r *MemoryLeadRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

// Ping always succeeds.
func (r *MemoryLeadRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (r *MemoryLeadRepository) Close() error {
	return nil
}
