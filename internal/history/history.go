// Package history records provisioning attempts so operators can see which
// tenants were installed, which failed and at which step.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/siteinstaller/internal/model"
)

// Recorder receives the lifecycle of each pipeline run.
type Recorder interface {
	Start(ctx context.Context, attempt *model.ProvisionAttempt) error
	Finish(ctx context.Context, id string, code model.ResultCode, finishedAt time.Time) error
}

// Lister returns recorded attempts, newest first.
type Lister interface {
	List(ctx context.Context, limit int) ([]model.ProvisionAttempt, error)
}

// DB is the subset of pgxpool.Pool used by PGRecorder.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// MaxListLimit caps List page sizes.
const MaxListLimit = 500

// PGRecorder stores attempts in the provision_attempts table.
type PGRecorder struct {
	db DB
}

func NewPGRecorder(db DB) *PGRecorder {
	return &PGRecorder{db: db}
}

func (r *PGRecorder) Start(ctx context.Context, a *model.ProvisionAttempt) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO provision_attempts (id, batch_id, identifier, archive_file, seed_file, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.BatchID, a.Identifier, a.ArchiveFile, a.SeedFile, a.Status, a.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert provision attempt: %w", err)
	}
	return nil
}

func (r *PGRecorder) Finish(ctx context.Context, id string, code model.ResultCode, finishedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE provision_attempts SET status = $2, code = $3, code_name = $4, finished_at = $5 WHERE id = $1`,
		id, model.StatusForCode(code), int(code), code.String(), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("update provision attempt %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update provision attempt %s: not found", id)
	}
	return nil
}

func (r *PGRecorder) List(ctx context.Context, limit int) ([]model.ProvisionAttempt, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, batch_id, identifier, archive_file, seed_file, status, code, code_name, started_at, finished_at
		 FROM provision_attempts ORDER BY started_at DESC, id LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list provision attempts: %w", err)
	}
	defer rows.Close()

	attempts := []model.ProvisionAttempt{}
	for rows.Next() {
		var a model.ProvisionAttempt
		var codeName *string
		if err := rows.Scan(&a.ID, &a.BatchID, &a.Identifier, &a.ArchiveFile, &a.SeedFile,
			&a.Status, &a.Code, &codeName, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan provision attempt: %w", err)
		}
		if codeName != nil {
			a.CodeName = *codeName
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provision attempts: %w", err)
	}
	return attempts, nil
}

// NopRecorder discards everything. It is used when no history database is configured.
type NopRecorder struct{}

func (NopRecorder) Start(context.Context, *model.ProvisionAttempt) error { return nil }

func (NopRecorder) Finish(context.Context, string, model.ResultCode, time.Time) error { return nil }

func (NopRecorder) List(context.Context, int) ([]model.ProvisionAttempt, error) {
	return []model.ProvisionAttempt{}, nil
}
