package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jkindrix/fitai/internal/domain"
	"github.com/jkindrix/fitai/internal/metrics"
)

var (
	sqliteUpsertLead = `
		INSERT INTO leads (` + LeadColumns.Select() + `)
		VALUES (` + LeadColumns.QuestionMarks() + `)
		ON CONFLICT(fingerprint) DO UPDATE SET ` + LeadColumns.ExcludedSet("id", "fingerprint", "created_at") + `
		RETURNING id, created_at`

	sqliteGetLead = `SELECT ` + LeadColumns.Select() + ` FROM leads WHERE id = ?`

	sqliteListLeads = `SELECT ` + LeadColumns.Select() + ` FROM leads
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
)

// SQLiteLeadRepository implements domain.LeadRepository on a single SQLite
// file. Timestamps are stored as Unix nanoseconds.
type SQLiteLeadRepository struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

var _ domain.LeadRepository = (*SQLiteLeadRepository)(nil)

// NewSQLiteLeadRepository opens (or creates) the database at path and
// ensures the schema exists.
func NewSQLiteLeadRepository(path string, m *metrics.Metrics) (*SQLiteLeadRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteLeadRepository{db: db, metrics: m}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return r, nil
}

func (r *SQLiteLeadRepository) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		goal TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL DEFAULT '',
		timeline TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save upserts lead by fingerprint.
func (r *SQLiteLeadRepository) Save(ctx context.Context, lead *domain.Lead) (err error) {
	defer r.observe("save_lead", time.Now(), &err)

	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	var (
		id        string
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, sqliteUpsertLead,
		lead.ID.String(),
		lead.Name,
		lead.Email,
		lead.Goal,
		lead.Experience,
		lead.Frequency,
		lead.Timeline,
		string(lead.Source),
		lead.Fingerprint,
		lead.CreatedAt.UnixNano(),
		lead.UpdatedAt.UnixNano(),
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("stored lead id %q: %w", id, err)
	}
	lead.ID = parsed
	lead.CreatedAt = time.Unix(0, createdAt).UTC()
	return nil
}

// GetByID retrieves a lead by ID.
func (r *SQLiteLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (l *domain.Lead, err error) {
	defer r.observe("get_lead", time.Now(), &err)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	l, err = scanSQLiteLead(r.db.QueryRowContext(ctx, sqliteGetLead, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// List returns leads newest first.
func (r *SQLiteLeadRepository) List(ctx context.Context, limit, offset int) (leads []*domain.Lead, err error) {
	defer r.observe("list_leads", time.Now(), &err)

	limit, offset = normalizePage(limit, offset)
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, sqliteListLeads, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanSQLiteLead(rows)
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
func (r *SQLiteLeadRepository) Count(ctx context.Context) (n int, err error) {
	defer r.observe("count_leads", time.Now(), &err)

	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (r *SQLiteLeadRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database.
func (r *SQLiteLeadRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteLeadRepository) observe(op string, start time.Time, err *error) {
	failed := *err
	if errors.Is(failed, ErrNotFound) {
		failed = nil
	}
	r.metrics.RecordDBQuery(op, time.Since(start), failed)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row rowScanner) (*domain.Lead, error) {
	var (
		l                    domain.Lead
		id, source           string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&id,
		&l.Name,
		&l.Email,
		&l.Goal,
		&l.Experience,
		&l.Frequency,
		&l.Timeline,
		&source,
		&l.Fingerprint,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if l.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("lead id %q: %w", id, err)
	}
	l.Source = domain.LeadSource(source)
	l.CreatedAt = time.Unix(0, createdAt).UTC()
	l.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &l, nil
}
