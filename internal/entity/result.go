package entity

import (
	"time"

	"github.com/joseph-ayodele/form-extractor/constants"
)

// JobHandle identifies a submitted recognition job.
type JobHandle struct {
	JobID       string            `json:"job_id"`
	DocumentID  string            `json:"document_id"`
	Feature     constants.Feature `json:"feature"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// JobResult is a terminal success: the full block arena.
type JobResult struct {
	Handle   JobHandle `json:"handle"`
	Blocks   *BlockSet `json:"-"`
	Warnings []string  `json:"warnings,omitempty"`
}

// TextResult is the output of the raw text variant.
type TextResult struct {
	DocumentID        string   `json:"document_id"`
	JobID             string   `json:"job_id"`
	Text              string   `json:"text"`
	AverageConfidence float64  `json:"average_confidence"`
	LineCount         int      `json:"line_count"`
	Warnings          []string `json:"warnings,omitempty"`
}

// FormResult is the output of the form field variant.
type FormResult struct {
	DocumentID string      `json:"document_id"`
	JobID      string      `json:"job_id"`
	Fields     []FormField `json:"fields"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// EntityResult is the output of the form field plus entity variant.
type EntityResult struct {
	DocumentID string            `json:"document_id"`
	JobID      string            `json:"job_id"`
	Fields     []FormField       `json:"fields"`
	Entities   ExtractedEntities `json:"entities"`
	Warnings   []string          `json:"warnings,omitempty"`
}
