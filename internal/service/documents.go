// Package service implements the document use-cases behind the external
// API surface: upload with duplicate detection, status lookup, result
// retrieval, reprocessing and download links. Transport framing lives
// elsewhere; this package only speaks through the ports it is given.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/docuflow/textract-export/constants"
	"github.com/docuflow/textract-export/internal/common"
	"github.com/docuflow/textract-export/internal/core"
	"github.com/docuflow/textract-export/internal/report"
	"github.com/docuflow/textract-export/internal/repository"
	"github.com/docuflow/textract-export/internal/storage"
)

type Documents struct {
	logger     *slog.Logger
	store      storage.ObjectStore
	jobs       repository.JobRepository
	presignTTL time.Duration
}

func NewDocuments(logger *slog.Logger, store storage.ObjectStore, jobs repository.JobRepository, presignTTL time.Duration) *Documents {
	if logger == nil {
		logger = slog.Default()
	}
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &Documents{logger: logger, store: store, jobs: jobs, presignTTL: presignTTL}
}

// UploadResult acknowledges a submission.
type UploadResult struct {
	AckID         string
	FileName      string
	Status        constants.JobStatus
	Duplicate     bool
	ExistingAckID string
	Message       string
}

// Upload validates and stores a document, creates its PENDING job record
// and returns the ackId to poll with. A file whose completed result
// already exists is flagged as a duplicate instead of being resubmitted.
func (d *Documents) Upload(ctx context.Context, fileName string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, common.NewAppError("EMPTY_FILE", "file is empty", common.ErrInvalidInput)
	}
	if constants.MapExtToFormat(filepath.Ext(fileName)) == "" {
		return nil, common.NewAppError("UNSUPPORTED_TYPE",
			"unsupported file type; allowed: PDF, JPG, PNG, TIFF, WEBP", common.ErrInvalidInput)
	}

	resultKey := core.ResultLocation(fileName)
	if exists, err := d.store.Exists(ctx, resultKey); err == nil && exists {
		existing, err := d.jobs.FindByFileName(ctx, fileName)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status == constants.JobStatusCompleted {
			d.logger.Info("documents.duplicate", "file_name", fileName, "ack_id", existing.AckID)
			return &UploadResult{
				AckID:         existing.AckID,
				FileName:      fileName,
				Status:        constants.JobStatusCompleted,
				Duplicate:     true,
				ExistingAckID: existing.AckID,
				Message:       "This document was previously analysed. View the existing result or reprocess to run again.",
			}, nil
		}
	}

	ackID := uuid.NewString()
	uploadKey := core.UploadLocation(ackID, fileName)
	if err := d.store.Put(ctx, uploadKey, data, constants.ContentTypeForName(fileName)); err != nil {
		return nil, fmt.Errorf("upload object: %w", err)
	}
	if _, err := d.jobs.Create(ctx, ackID, fileName, uploadKey); err != nil {
		return nil, err
	}

	d.logger.Info("documents.queued", "ack_id", ackID, "file_name", fileName)
	return &UploadResult{
		AckID:    ackID,
		FileName: fileName,
		Status:   constants.JobStatusPending,
		Message:  "Document uploaded successfully. Use the acknowledgment ID to track progress.",
	}, nil
}

// StatusResult is a job-record projection for polling clients.
type StatusResult struct {
	AckID     string
	FileName  string
	Status    constants.JobStatus
	HasResult bool
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Documents) Status(ctx context.Context, ackID string) (*StatusResult, error) {
	job, err := d.jobs.Get(ctx, ackID)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		AckID:     job.AckID,
		FileName:  job.FileName,
		Status:    job.Status,
		HasResult: job.ResultLocation != "",
		Error:     job.ErrorMessage,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}, nil
}

// DocumentResult carries the parsed workbook for display plus a download
// link for the raw file.
type DocumentResult struct {
	AckID       string
	FileName    string
	Status      constants.JobStatus
	Sheets      []report.Sheet
	DownloadURL string
	CreatedAt   time.Time
}

// Result returns the completed job's sheets. A job that has not completed
// yet yields common.ErrNotReady so the caller can answer "still working".
func (d *Documents) Result(ctx context.Context, ackID string) (*DocumentResult, error) {
	job, err := d.jobs.Get(ctx, ackID)
	if err != nil {
		return nil, err
	}
	if job.Status != constants.JobStatusCompleted {
		return nil, common.NewAppError("NOT_COMPLETED",
			fmt.Sprintf("document is still being processed; current status: %s", job.Status),
			common.ErrNotReady)
	}

	resultKey := job.ResultLocation
	if resultKey == "" {
		// Older records may predate result tracking; derive from the name.
		resultKey = core.ResultLocation(job.FileName)
	}

	data, err := d.store.Get(ctx, resultKey)
	if err != nil {
		return nil, common.WrapError(err, "result workbook missing; processing may have failed")
	}
	sheets, err := report.ReadSheets(data)
	if err != nil {
		return nil, fmt.Errorf("read result workbook: %w", err)
	}
	url, err := d.store.Presign(resultKey, d.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign result: %w", err)
	}

	return &DocumentResult{
		AckID:       job.AckID,
		FileName:    job.FileName,
		Status:      job.Status,
		Sheets:      sheets,
		DownloadURL: url,
		CreatedAt:   job.CreatedAt,
	}, nil
}

// Reprocess re-runs analysis for an existing job. The original upload must
// still exist; the stale result is deleted and the upload object is
// rewritten in place so the ingest trigger fires again.
func (d *Documents) Reprocess(ctx context.Context, ackID string) (*StatusResult, error) {
	job, err := d.jobs.Get(ctx, ackID)
	if err != nil {
		return nil, err
	}

	exists, err := d.store.Exists(ctx, job.UploadLocation)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, common.NewAppError("UPLOAD_GONE",
			"original upload no longer exists", common.ErrGone)
	}

	resultKey := core.ResultLocation(job.FileName)
	if exists, err := d.store.Exists(ctx, resultKey); err == nil && exists {
		if err := d.store.Delete(ctx, resultKey); err != nil {
			return nil, fmt.Errorf("delete stale result: %w", err)
		}
		d.logger.Info("documents.reprocess.cleared", "ack_id", ackID, "result", resultKey)
	}

	data, err := d.store.Get(ctx, job.UploadLocation)
	if err != nil {
		return nil, fmt.Errorf("reload upload: %w", err)
	}
	if err := d.store.Put(ctx, job.UploadLocation, data, constants.ContentTypeForName(job.FileName)); err != nil {
		return nil, fmt.Errorf("re-trigger processing: %w", err)
	}

	if err := d.jobs.Update(ctx, ackID, repository.StatusUpdate{Status: constants.JobStatusPending}); err != nil {
		return nil, err
	}
	d.logger.Info("documents.reprocess.started", "ack_id", ackID)
	return d.Status(ctx, ackID)
}

// DownloadURL returns a presigned link to the result workbook.
func (d *Documents) DownloadURL(ctx context.Context, ackID string) (string, error) {
	job, err := d.jobs.Get(ctx, ackID)
	if err != nil {
		return "", err
	}
	if job.Status != constants.JobStatusCompleted {
		return "", common.NewAppError("NOT_COMPLETED",
			fmt.Sprintf("not yet completed; current status: %s", job.Status), common.ErrNotReady)
	}
	resultKey := job.ResultLocation
	if resultKey == "" {
		resultKey = core.ResultLocation(job.FileName)
	}
	return d.store.Presign(resultKey, d.presignTTL)
}
