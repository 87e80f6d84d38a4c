// Package postgres persists completed run summaries so past analyses stay
// queryable after their artifacts leave disk.
package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	apperrors "adlens/internal/errors"
	"adlens/models"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id              UUID PRIMARY KEY,
	query           TEXT NOT NULL,
	status          TEXT NOT NULL,
	hypotheses      INT NOT NULL DEFAULT 0,
	validated       INT NOT NULL DEFAULT 0,
	recommendations INT NOT NULL DEFAULT 0,
	report_path     TEXT NOT NULL DEFAULT '',
	report_md       TEXT NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ
)`

// RunRepository stores run records in PostgreSQL
type RunRepository struct {
	db *sqlx.DB
}

// Connect opens the run-archive database and ensures its schema exists
func Connect(databaseURL string) (*RunRepository, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.CodeDatabaseError, "failed to connect to run archive")
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, apperrors.WrapCode(err, apperrors.CodeDatabaseError, "failed to ensure runs schema")
	}
	return &RunRepository{db: db}, nil
}

// NewRunRepository wraps an existing connection
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Close releases the underlying connection pool
func (r *RunRepository) Close() error {
	return r.db.Close()
}

// Insert archives one completed run
func (r *RunRepository) Insert(ctx context.Context, rec models.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, query, status, hypotheses, validated, recommendations, report_path, report_md, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Query, rec.Status, rec.Hypotheses, rec.Validated, rec.Recommendations,
		rec.ReportPath, rec.ReportMarkdown, rec.StartedAt, rec.CompletedAt)
	if err != nil {
		return apperrors.WrapCode(err, apperrors.CodeDatabaseError, "failed to insert run record")
	}
	return nil
}

// Get retrieves one run by ID
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*models.RunRecord, error) {
	var rec models.RunRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, query, status, hypotheses, validated, recommendations, report_path, report_md, started_at, completed_at
		FROM analysis_runs
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("run")
	}
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.CodeDatabaseError, "failed to load run record")
	}
	return &rec, nil
}

// List returns the most recent runs, newest first, without report bodies
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []models.RunRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT id, query, status, hypotheses, validated, recommendations, report_path, '' AS report_md, started_at, completed_at
		FROM analysis_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.CodeDatabaseError, "failed to list run records")
	}
	return recs, nil
}
