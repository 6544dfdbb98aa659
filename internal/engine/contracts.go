// Package engine defines the document-analysis engine port.
package engine

import (
	"context"

	"github.com/docuflow/textract-export/internal/blockgraph"
)

// Status is the remote job status reported by a poll.
type Status string

const (
	StatusInProgress     Status = "IN_PROGRESS"
	StatusPartialSuccess Status = "PARTIAL_SUCCESS"
	StatusSucceeded      Status = "SUCCEEDED"
	StatusFailed         Status = "FAILED"
)

// AnalysisPage is one page of an async job's result.
type AnalysisPage struct {
	Status        Status
	Blocks        []blockgraph.Block
	NextToken     string
	StatusMessage string
}

// Client is the analysis-engine capability the coordinator drives.
// Location is the object-store key of the uploaded document.
type Client interface {
	// StartAnalysis submits an async analysis job and returns its id.
	StartAnalysis(ctx context.Context, location string) (string, error)
	// GetAnalysis fetches the job status and, once SUCCEEDED, one result
	// page. Pass the previous page's NextToken to continue; "" for the
	// first page. maxResults caps the page size when positive.
	GetAnalysis(ctx context.Context, jobID, nextToken string, maxResults int) (AnalysisPage, error)
	// AnalyzeSync runs a one-shot analysis for small (single-page) inputs.
	AnalyzeSync(ctx context.Context, location string) ([]blockgraph.Block, error)
}
