package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/docuflow/textract-export/internal/blockgraph"
	"github.com/docuflow/textract-export/internal/common"
)

// ReplayClient serves pre-computed analysis payloads from a local directory.
// For an uploaded document "uploads/{ackId}/invoice.pdf" it expects
// "{dir}/invoice.pdf.json" holding {"Blocks": [...]}. Payloads are
// schema-validated on load. Used for local runs and integration tests in
// place of the hosted engine.
type ReplayClient struct {
	dir      string
	pageSize int
	logger   *slog.Logger

	mu   sync.Mutex
	jobs map[string]string // jobID -> document location
}

func NewReplayClient(dir string, pageSize int, logger *slog.Logger) *ReplayClient {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &ReplayClient{
		dir:      dir,
		pageSize: pageSize,
		logger:   logger,
		jobs:     make(map[string]string),
	}
}

// StartAnalysis registers an async job for the document. The payload file
// must exist up front so a bad location fails at submit, not at poll.
func (c *ReplayClient) StartAnalysis(ctx context.Context, location string) (string, error) {
	if _, err := os.Stat(c.payloadPath(location)); err != nil {
		return "", common.NewAppError("ENGINE_NO_PAYLOAD",
			fmt.Sprintf("no stored analysis for %s", location), err)
	}
	jobID := uuid.NewString()
	c.mu.Lock()
	c.jobs[jobID] = location
	c.mu.Unlock()

	c.logger.Info("engine.replay.start", "job_id", jobID, "location", location)
	return jobID, nil
}

// GetAnalysis reports SUCCEEDED immediately and pages through the stored
// block collection. The continuation token is the byte offset into the
// block slice, as a decimal string.
func (c *ReplayClient) GetAnalysis(ctx context.Context, jobID, nextToken string, maxResults int) (AnalysisPage, error) {
	c.mu.Lock()
	location, ok := c.jobs[jobID]
	c.mu.Unlock()
	if !ok {
		return AnalysisPage{}, common.NewAppError("ENGINE_UNKNOWN_JOB",
			fmt.Sprintf("unknown analysis job %s", jobID), common.ErrNotFound)
	}

	blocks, err := c.load(location)
	if err != nil {
		return AnalysisPage{Status: StatusFailed, StatusMessage: err.Error()}, nil
	}

	offset := 0
	if nextToken != "" {
		offset, err = strconv.Atoi(nextToken)
		if err != nil || offset < 0 || offset > len(blocks) {
			return AnalysisPage{}, common.NewAppError("ENGINE_BAD_TOKEN",
				fmt.Sprintf("invalid continuation token %q", nextToken), common.ErrInvalidInput)
		}
	}

	size := c.pageSize
	if maxResults > 0 && maxResults < size {
		size = maxResults
	}
	end := offset + size
	if end > len(blocks) {
		end = len(blocks)
	}

	page := AnalysisPage{Status: StatusSucceeded, Blocks: blocks[offset:end]}
	if end < len(blocks) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// AnalyzeSync loads the whole stored payload in one call.
func (c *ReplayClient) AnalyzeSync(ctx context.Context, location string) ([]blockgraph.Block, error) {
	return c.load(location)
}

func (c *ReplayClient) load(location string) ([]blockgraph.Block, error) {
	p := c.payloadPath(location)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read analysis payload %s: %w", p, err)
	}
	blocks, err := blockgraph.DecodePayload(data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("engine.replay.loaded", "location", location, "blocks", len(blocks))
	return blocks, nil
}

func (c *ReplayClient) payloadPath(location string) string {
	name := path.Base(strings.ReplaceAll(location, "\\", "/"))
	return filepath.Join(c.dir, name+".json")
}

var _ Client = (*ReplayClient)(nil)
