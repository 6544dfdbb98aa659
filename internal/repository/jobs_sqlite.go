package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docuflow/textract-export/constants"
	"github.com/docuflow/textract-export/internal/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	ack_id          TEXT PRIMARY KEY,
	file_name       TEXT NOT NULL,
	upload_location TEXT NOT NULL,
	result_location TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS analysis_jobs_file_name_idx ON analysis_jobs (file_name);
`

// OpenSQLite opens (creating if needed) the SQLite job store at path.
// WAL mode keeps the daemon's workers from tripping over each other.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// SQLiteJobRepository is the local/dev job store.
type SQLiteJobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteJobRepository(db *sql.DB, logger *slog.Logger) *SQLiteJobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteJobRepository{db: db, logger: logger}
}

func (r *SQLiteJobRepository) Create(ctx context.Context, ackID, fileName, uploadLocation string) (*JobRecord, error) {
	now := time.Now().UTC()
	rec := &JobRecord{
		AckID:          ackID,
		FileName:       fileName,
		UploadLocation: uploadLocation,
		Status:         constants.JobStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO analysis_jobs (ack_id, file_name, upload_location, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.AckID, rec.FileName, rec.UploadLocation, string(rec.Status),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert job %s: %w", ackID, err)
	}
	r.logger.Info("jobs.created", "ack_id", ackID, "file_name", fileName)
	return rec, nil
}

func (r *SQLiteJobRepository) Get(ctx context.Context, ackID string) (*JobRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT ack_id, file_name, upload_location, result_location, status, error_message, created_at, updated_at
		FROM analysis_jobs WHERE ack_id = ?`, ackID)
	return scanSQLiteJob(row, ackID)
}

func (r *SQLiteJobRepository) Update(ctx context.Context, ackID string, upd StatusUpdate) error {
	query := `UPDATE analysis_jobs SET status = ?, updated_at = ?`
	args := []any{string(upd.Status), time.Now().UTC().Format(time.RFC3339Nano)}
	if upd.ResultLocation != nil {
		query += ", result_location = ?"
		args = append(args, *upd.ResultLocation)
	}
	if upd.ErrorMessage != nil {
		query += ", error_message = ?"
		args = append(args, *upd.ErrorMessage)
	}
	query += " WHERE ack_id = ?"
	args = append(args, ackID)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", ackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("JOB_NOT_FOUND", ackID, common.ErrNotFound)
	}
	r.logger.Info("jobs.updated", "ack_id", ackID, "status", upd.Status)
	return nil
}

func (r *SQLiteJobRepository) FindByFileName(ctx context.Context, fileName string) (*JobRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT ack_id, file_name, upload_location, result_location, status, error_message, created_at, updated_at
		FROM analysis_jobs WHERE file_name = ?
		ORDER BY created_at DESC LIMIT 1`, fileName)
	rec, err := scanSQLiteJob(row, fileName)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return rec, err
}

func scanSQLiteJob(row *sql.Row, id string) (*JobRecord, error) {
	var rec JobRecord
	var status, createdAt, updatedAt string
	err := row.Scan(&rec.AckID, &rec.FileName, &rec.UploadLocation, &rec.ResultLocation,
		&status, &rec.ErrorMessage, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewAppError("JOB_NOT_FOUND", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	rec.Status = constants.JobStatus(status)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &rec, nil
}

var _ JobRepository = (*SQLiteJobRepository)(nil)
