package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docuflow/textract-export/constants"
	"github.com/docuflow/textract-export/internal/common"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	ack_id          TEXT PRIMARY KEY,
	file_name       TEXT NOT NULL,
	upload_location TEXT NOT NULL,
	result_location TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_jobs_file_name_idx ON analysis_jobs (file_name);
`

// PGJobRepository is the Postgres-backed job store.
type PGJobRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGJobRepository(pool *pgxpool.Pool, logger *slog.Logger) *PGJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGJobRepository{pool: pool, logger: logger}
}

// Migrate creates the analysis_jobs table if missing.
func (r *PGJobRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate analysis_jobs: %w", err)
	}
	return nil
}

func (r *PGJobRepository) Create(ctx context.Context, ackID, fileName, uploadLocation string) (*JobRecord, error) {
	now := time.Now().UTC()
	rec := &JobRecord{
		AckID:          ackID,
		FileName:       fileName,
		UploadLocation: uploadLocation,
		Status:         constants.JobStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analysis_jobs (ack_id, file_name, upload_location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.AckID, rec.FileName, rec.UploadLocation, string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert job %s: %w", ackID, err)
	}
	r.logger.Info("jobs.created", "ack_id", ackID, "file_name", fileName)
	return rec, nil
}

func (r *PGJobRepository) Get(ctx context.Context, ackID string) (*JobRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT ack_id, file_name, upload_location, result_location, status, error_message, created_at, updated_at
		FROM analysis_jobs WHERE ack_id = $1`, ackID)
	return scanJob(row, ackID)
}

func (r *PGJobRepository) Update(ctx context.Context, ackID string, upd StatusUpdate) error {
	query := `UPDATE analysis_jobs SET status = $1, updated_at = $2`
	args := []any{string(upd.Status), time.Now().UTC()}
	if upd.ResultLocation != nil {
		args = append(args, *upd.ResultLocation)
		query += fmt.Sprintf(", result_location = $%d", len(args))
	}
	if upd.ErrorMessage != nil {
		args = append(args, *upd.ErrorMessage)
		query += fmt.Sprintf(", error_message = $%d", len(args))
	}
	args = append(args, ackID)
	query += fmt.Sprintf(" WHERE ack_id = $%d", len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", ackID, err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError("JOB_NOT_FOUND", ackID, common.ErrNotFound)
	}
	r.logger.Info("jobs.updated", "ack_id", ackID, "status", upd.Status)
	return nil
}

func (r *PGJobRepository) FindByFileName(ctx context.Context, fileName string) (*JobRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT ack_id, file_name, upload_location, result_location, status, error_message, created_at, updated_at
		FROM analysis_jobs WHERE file_name = $1
		ORDER BY created_at DESC LIMIT 1`, fileName)
	rec, err := scanJob(row, fileName)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, id string) (*JobRecord, error) {
	var rec JobRecord
	var status string
	err := row.Scan(&rec.AckID, &rec.FileName, &rec.UploadLocation, &rec.ResultLocation,
		&status, &rec.ErrorMessage, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewAppError("JOB_NOT_FOUND", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	rec.Status = constants.JobStatus(status)
	return &rec, nil
}

var _ JobRepository = (*PGJobRepository)(nil)
