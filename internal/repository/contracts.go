// Package repository holds the job-status store port and its SQL adapters.
package repository

import (
	"context"
	"time"

	"github.com/docuflow/textract-export/constants"
)

// JobRecord is one document's lifecycle row, keyed by ackId.
type JobRecord struct {
	AckID          string
	FileName       string
	UploadLocation string
	ResultLocation string
	Status         constants.JobStatus
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusUpdate describes one transition write. Nil optional fields leave
// the stored value untouched; updated_at always advances.
type StatusUpdate struct {
	Status         constants.JobStatus
	ResultLocation *string
	ErrorMessage   *string
}

// JobRepository is the status-store port the coordinator and the document
// service write through.
type JobRepository interface {
	// Create inserts a PENDING record for a fresh upload.
	Create(ctx context.Context, ackID, fileName, uploadLocation string) (*JobRecord, error)
	// Get returns the record or common.ErrNotFound.
	Get(ctx context.Context, ackID string) (*JobRecord, error)
	// Update applies one status transition.
	Update(ctx context.Context, ackID string, upd StatusUpdate) error
	// FindByFileName returns the most recent record for a file name,
	// or (nil, nil) when none exists.
	FindByFileName(ctx context.Context, fileName string) (*JobRecord, error)
}
