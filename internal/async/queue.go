package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document waiting for a pipeline run.
type Job struct {
	Document    entity.Document
	Variant     constants.Variant
	SubmittedAt time.Time
	TraceID     string
	Seq         int // position within a batch
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Runner executes one pipeline run; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, doc entity.Document, variant constants.Variant) entity.DocumentResult
}

// ResultFunc receives every outcome, successful or not, from a worker goroutine.
type ResultFunc func(job Job, res entity.DocumentResult)
