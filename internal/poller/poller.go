package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/recognition"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultMaxWait  = 5 * time.Minute
)

// JobError reports a job-level failure: the backend failed the job or
// polling ran out of time. It unwraps to ErrRecognitionJobFailed or
// ErrRecognitionTimeout.
type JobError struct {
	Handle   entity.JobHandle
	Status   constants.JobStatus
	Message  string
	Attempts int
	Elapsed  time.Duration
	Err      error
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("%v: job %s (status %s, %d checks in %s)",
		e.Err, e.Handle.JobID, e.Status, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *JobError) Unwrap() error { return e.Err }

// Poller drives the submit-then-poll state machine against one
// recognition client. It keeps no per-job state between calls.
type Poller struct {
	client   recognition.Client
	logger   *slog.Logger
	interval time.Duration
	maxWait  time.Duration
	now      func() time.Time
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithMaxWait(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.maxWait = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(client recognition.Client, opts ...Option) *Poller {
	p := &Poller{
		client:   client,
		logger:   slog.Default(),
		interval: DefaultInterval,
		maxWait:  DefaultMaxWait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured default poll interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// MaxWait returns the configured default wait bound.
func (p *Poller) MaxWait() time.Duration { return p.maxWait }

// Submit hands the document to the backend and returns without waiting.
// A backend failure is wrapped with ErrSubmissionFailed; cancellation of ctx
// is returned as ctx.Err() so callers can tell the two apart.
func (p *Poller) Submit(ctx context.Context, doc entity.Document, feature constants.Feature) (entity.JobHandle, error) {
	jobID, err := p.client.Submit(ctx, doc, feature)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.logger.Warn("poller.submit.cancelled", "document_id", doc.ID, "feature", feature, "err", ctxErr)
			return entity.JobHandle{}, ctxErr
		}
		p.logger.Error("poller.submit.failed", "document_id", doc.ID, "feature", feature, "err", err)
		return entity.JobHandle{}, fmt.Errorf("%w: %w", common.ErrSubmissionFailed, err)
	}
	h := entity.JobHandle{
		JobID:       jobID,
		DocumentID:  doc.ID,
		Feature:     feature,
		SubmittedAt: p.now().UTC(),
	}
	p.logger.Info("poller.submitted", "job_id", jobID, "document_id", doc.ID, "feature", feature)
	return h, nil
}

// AwaitCompletion checks the job immediately and then once per interval
// until it succeeds, fails, or the next check would land past maxWait.
// Zero interval or maxWait use the poller defaults. Calling it again with
// the same handle after a timeout resumes polling; nothing is resubmitted
// and the backend job is never cancelled.
func (p *Poller) AwaitCompletion(ctx context.Context, h entity.JobHandle, interval, maxWait time.Duration) (entity.JobResult, error) {
	if interval <= 0 {
		interval = p.interval
	}
	if maxWait <= 0 {
		maxWait = p.maxWait
	}
	if h.JobID == "" {
		return entity.JobResult{}, common.NewAppError("INVALID_INPUT", "job handle has no job id", common.ErrInvalidInput)
	}

	start := p.now()
	deadline := start.Add(maxWait)
	last := constants.JobStatusPending

	for attempt := 1; ; attempt++ {
		res, err := p.client.Status(ctx, h.JobID, h.Feature)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return entity.JobResult{}, ctxErr
			}
			p.logger.Error("poller.status.failed", "job_id", h.JobID, "attempt", attempt, "err", err)
			return entity.JobResult{}, fmt.Errorf("poll job %s: %w", h.JobID, err)
		}
		last = res.Status
		p.logger.Debug("poller.status", "job_id", h.JobID, "attempt", attempt, "status", res.Status)

		switch res.Status {
		case constants.JobStatusSucceeded:
			p.logger.Info("poller.succeeded",
				"job_id", h.JobID,
				"attempts", attempt,
				"blocks", len(res.Blocks),
				"elapsed_ms", p.now().Sub(start).Milliseconds(),
			)
			return entity.JobResult{
				Handle:   h,
				Blocks:   entity.NewBlockSet(res.Blocks),
				Warnings: res.Warnings,
			}, nil
		case constants.JobStatusFailed:
			p.logger.Warn("poller.job_failed", "job_id", h.JobID, "attempts", attempt, "message", res.Message)
			return entity.JobResult{}, &JobError{
				Handle:   h,
				Status:   res.Status,
				Message:  res.Message,
				Attempts: attempt,
				Elapsed:  p.now().Sub(start),
				Err:      common.ErrRecognitionJobFailed,
			}
		}

		if p.now().Add(interval).After(deadline) {
			p.logger.Warn("poller.timeout", "job_id", h.JobID, "attempts", attempt, "max_wait", maxWait.String())
			return entity.JobResult{}, &JobError{
				Handle:   h,
				Status:   last,
				Attempts: attempt,
				Elapsed:  p.now().Sub(start),
				Err:      common.ErrRecognitionTimeout,
			}
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return entity.JobResult{}, ctx.Err()
		case <-t.C:
		}
	}
}
