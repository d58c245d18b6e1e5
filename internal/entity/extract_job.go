package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-extractor/constants"
)

// ExtractJob is one ledger row recording a pipeline run.
type ExtractJob struct {
	ID                uuid.UUID               `json:"id"`
	DocumentID        string                  `json:"document_id"`
	Filename          string                  `json:"filename"`
	MediaType         string                  `json:"media_type"`
	Feature           constants.Feature       `json:"feature"`
	Variant           constants.Variant       `json:"variant"`
	BackendJobID      *string                 `json:"backend_job_id,omitempty"`
	State             constants.PipelineState `json:"state"`
	ErrorMessage      *string                 `json:"error_message,omitempty"`
	FieldCount        *int                    `json:"field_count,omitempty"`
	AverageConfidence *float64                `json:"average_confidence,omitempty"`
	ResultJSON        json.RawMessage         `json:"result,omitempty"`
	StartedAt         time.Time               `json:"started_at"`
	FinishedAt        *time.Time              `json:"finished_at,omitempty"`
}

// DocumentResult is one outcome of a batch run; exactly one of the
// result pointers or Err is set.
type DocumentResult struct {
	Document Document
	Variant  constants.Variant
	Text     *TextResult
	Form     *FormResult
	Entities *EntityResult
	Err      error
	Elapsed  time.Duration
}
