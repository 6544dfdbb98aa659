// Package core drives a submitted document through the analysis engine to
// a terminal state: submit (or one-shot sync call), poll to completion
// under the caller's time budget, page through results, resolve the block
// graph and persist the report workbook.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/docuflow/textract-export/constants"
	"github.com/docuflow/textract-export/internal/blockgraph"
	"github.com/docuflow/textract-export/internal/common"
	"github.com/docuflow/textract-export/internal/engine"
	"github.com/docuflow/textract-export/internal/report"
	"github.com/docuflow/textract-export/internal/repository"
	"github.com/docuflow/textract-export/internal/storage"
)

// errorMessageLimit caps what goes into the status store on failure.
const errorMessageLimit = 500

// Coordinator runs one document's state machine per ProcessObject call.
// It is safe for concurrent use across distinct documents; a single
// document must not be processed by two invocations at once.
type Coordinator struct {
	logger *slog.Logger
	engine engine.Client
	store  storage.ObjectStore
	jobs   repository.JobRepository
	writer *report.Writer

	pollInterval   time.Duration
	deadlineMargin time.Duration
	maxResults     int
}

type Option func(*Coordinator)

// WithPollInterval overrides the fixed delay between poll attempts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithDeadlineMargin overrides the safety margin kept against the
// context deadline while polling.
func WithDeadlineMargin(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.deadlineMargin = d
		}
	}
}

// WithMaxResults overrides the page size requested from the engine.
func WithMaxResults(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func NewCoordinator(
	logger *slog.Logger,
	eng engine.Client,
	store storage.ObjectStore,
	jobs repository.JobRepository,
	writer *report.Writer,
	opts ...Option,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		logger:         logger,
		engine:         eng,
		store:          store,
		jobs:           jobs,
		writer:         writer,
		pollInterval:   5 * time.Second,
		deadlineMargin: 60 * time.Second,
		maxResults:     1000,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProcessObject handles one uploaded object key. Keys outside the
// uploads/{ackId}/{file} layout are skipped, not failed. Any processing
// error is recorded on the job before being returned, so a batch caller
// can keep going with its remaining documents.
func (c *Coordinator) ProcessObject(ctx context.Context, objectKey string) error {
	ackID, ok := ParseAckID(objectKey)
	if !ok {
		c.logger.Warn("coordinator.skip", "object_key", objectKey, "reason", "no ackId in key")
		return nil
	}
	fileName := path.Base(objectKey)
	c.logger.Info("coordinator.start", "ack_id", ackID, "object_key", objectKey)

	if err := c.process(ctx, ackID, fileName, objectKey); err != nil {
		c.logger.Error("coordinator.failed", "ack_id", ackID, "object_key", objectKey, "error", err)
		// The primary outcome must survive even when ctx is already dead.
		c.updateStatus(context.WithoutCancel(ctx), ackID, constants.JobStatusFailed, "", err.Error())
		return err
	}
	return nil
}

func (c *Coordinator) process(ctx context.Context, ackID, fileName, objectKey string) error {
	c.updateStatus(ctx, ackID, constants.JobStatusProcessing, "", "")

	var blocks []blockgraph.Block
	var err error
	switch constants.MapExtToFormat(filepath.Ext(fileName)) {
	case constants.PDF:
		blocks, err = c.analyzeAsync(ctx, objectKey)
	case constants.IMAGE:
		blocks, err = c.engine.AnalyzeSync(ctx, objectKey)
	default:
		err = common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("unsupported file extension on %s", fileName), common.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	c.logger.Info("coordinator.analyzed", "ack_id", ackID, "blocks", len(blocks))

	doc := blockgraph.Resolve(blocks)
	data, err := c.writer.Workbook(doc)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}

	resultKey := ResultLocation(fileName)
	if err := c.store.Put(ctx, resultKey, data, constants.XLSXContentType); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	c.logger.Info("coordinator.result.stored", "ack_id", ackID, "result", resultKey)

	c.updateStatus(ctx, ackID, constants.JobStatusCompleted, resultKey, "")
	return nil
}

func (c *Coordinator) analyzeAsync(ctx context.Context, objectKey string) ([]blockgraph.Block, error) {
	jobID, err := c.engine.StartAnalysis(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("start analysis: %w", err)
	}
	c.logger.Info("coordinator.job.started", "job_id", jobID, "object_key", objectKey)
	return c.pollForCompletion(ctx, jobID)
}

// pollForCompletion waits out the remote job on a fixed interval, then
// accumulates every result page in arrival order. PARTIAL_SUCCESS payloads
// are not authoritative and are ignored; only the SUCCEEDED page chain
// counts. The context deadline minus the safety margin is the hard budget:
// once it cannot fit another poll, the run fails as a deadline fault while
// the remote job likely keeps running.
func (c *Coordinator) pollForCompletion(ctx context.Context, jobID string) ([]blockgraph.Block, error) {
	var all []blockgraph.Block
	pollCount := 0

	for {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < c.deadlineMargin {
			return nil, common.NewAppError("ANALYSIS_TIMEOUT",
				fmt.Sprintf("time budget exhausted after %d polls; job %s may still be running", pollCount, jobID),
				common.ErrDeadline)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling interrupted: %w", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		page, err := c.engine.GetAnalysis(ctx, jobID, "", c.maxResults)
		if err != nil {
			return nil, fmt.Errorf("poll job %s: %w", jobID, err)
		}
		pollCount++
		c.logger.Info("coordinator.poll", "job_id", jobID, "poll", pollCount, "status", page.Status)

		switch page.Status {
		case engine.StatusSucceeded:
			all = append(all, page.Blocks...)
			token := page.NextToken
			for token != "" {
				next, err := c.engine.GetAnalysis(ctx, jobID, token, c.maxResults)
				if err != nil {
					return nil, fmt.Errorf("fetch result page for job %s: %w", jobID, err)
				}
				all = append(all, next.Blocks...)
				token = next.NextToken
			}
			c.logger.Info("coordinator.job.succeeded", "job_id", jobID, "blocks", len(all))
			return all, nil

		case engine.StatusFailed:
			return nil, common.NewAppError("ANALYSIS_FAILED",
				fmt.Sprintf("job %s: %s", jobID, page.StatusMessage), common.ErrJobFailed)

		case engine.StatusInProgress, engine.StatusPartialSuccess:
			// keep polling

		default:
			return nil, common.NewAppError("ANALYSIS_UNEXPECTED_STATUS",
				fmt.Sprintf("job %s reported %q", jobID, page.Status), common.ErrUnexpectedStatus)
		}
	}
}

// updateStatus issues exactly one status-store write per transition.
// Store failures are logged and swallowed: they must never mask the
// processing outcome.
func (c *Coordinator) updateStatus(ctx context.Context, ackID string, status constants.JobStatus, resultLocation, errMsg string) {
	upd := repository.StatusUpdate{Status: status}
	if resultLocation != "" {
		upd.ResultLocation = &resultLocation
	}
	if errMsg != "" {
		msg := common.Truncate(errMsg, errorMessageLimit)
		upd.ErrorMessage = &msg
	}
	if err := c.jobs.Update(ctx, ackID, upd); err != nil {
		c.logger.Error("coordinator.status_update.failed",
			"ack_id", ackID, "status", status, "error", err)
	}
}
