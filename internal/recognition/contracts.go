package recognition

import (
	"context"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Client talks to the asynchronous OCR backend. Submit never waits for
// completion; Status is a single non-blocking check.
type Client interface {
	Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (string, error)
	Status(ctx context.Context, jobID string, feature constants.Feature) (StatusResult, error)
}

// StatusResult is one status observation. Blocks is set only when
// Status is SUCCEEDED.
type StatusResult struct {
	Status   constants.JobStatus `json:"status"`
	Message  string              `json:"message,omitempty"`
	Blocks   []entity.Block      `json:"blocks,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}
