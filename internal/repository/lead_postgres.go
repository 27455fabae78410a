package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
)

var (
	postgresUpsertLead = `
		INSERT INTO leads (` + LeadColumns.Select() + `)
		VALUES (` + LeadColumns.Placeholders() + `)
		ON CONFLICT (fingerprint) DO UPDATE SET ` + LeadColumns.ExcludedSet("id", "fingerprint", "created_at") + `
		RETURNING id, created_at`

	postgresGetLead = `SELECT ` + LeadColumns.Select() + ` FROM leads WHERE id = $1`

	postgresListLeads = `SELECT ` + LeadColumns.Select() + ` FROM leads
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
)

// PostgresLeadRepository implements domain.LeadRepository on PostgreSQL.
type PostgresLeadRepository struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

var _ domain.LeadRepository = (*PostgresLeadRepository)(nil)

// NewPostgresLeadRepository creates a repository on pool. The leads table is
// created by the database migrations.
func NewPostgresLeadRepository(pool *pgxpool.Pool, m *metrics.Metrics) *PostgresLeadRepository {
	return &PostgresLeadRepository{pool: pool, metrics: m}
}

// Save upserts lead by fingerprint.
func (r *PostgresLeadRepository) Save(ctx context.Context, lead *domain.Lead) (err error) {
	defer r.observe("save_lead", time.Now(), &err)

	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	err = r.pool.QueryRow(ctx, postgresUpsertLead,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Goal,
		lead.Experience,
		lead.Frequency,
		lead.Timeline,
		string(lead.Source),
		lead.Fingerprint,
		lead.CreatedAt,
		lead.UpdatedAt,
	).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

// GetByID retrieves a lead by ID.
func (r *PostgresLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (l *domain.Lead, err error) {
	defer r.observe("get_lead", time.Now(), &err)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	l, err = scanLead(r.pool.QueryRow(ctx, postgresGetLead, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// List returns leads newest first.
func (r *PostgresLeadRepository) List(ctx context.Context, limit, offset int) (leads []*domain.Lead, err error) {
	defer r.observe("list_leads", time.Now(), &err)

	limit, offset = normalizePage(limit, offset)
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, postgresListLeads, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// Count returns the number of leads.
func (r *PostgresLeadRepository) Count(ctx context.Context) (n int, err error) {
	defer r.observe("count_leads", time.Now(), &err)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	if err = r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

func (r *PostgresLeadRepository) observe(op string, start time.Time, err *error) {
	failed := *err
	if errors.Is(failed, ErrNotFound) {
		failed = nil
	}
	r.metrics.RecordDBQuery(op, time.Since(start), failed)
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		l      domain.Lead
		source string
	)
	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Email,
		&l.Goal,
		&l.Experience,
		&l.Frequency,
		&l.Timeline,
		&source,
		&l.Fingerprint,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Source = domain.LeadSource(source)
	return &l, nil
}
