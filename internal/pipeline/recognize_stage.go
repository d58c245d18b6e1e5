package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// run carries one document through the stages. It is never shared.
type run struct {
	job      *entity.ExtractJob
	result   entity.JobResult
	warnings []string
}

// begin validates the document, opens its ledger row, submits it and
// waits for a terminal status.
func (o *Orchestrator) begin(ctx context.Context, doc entity.Document, variant constants.Variant) (*run, error) {
	doc, err := prepare(doc)
	if err != nil {
		o.logger.Warn("pipeline.rejected", "document_id", doc.ID, "variant", variant, "err", err)
		return nil, err
	}

	job, err := o.jobs.Start(ctx, doc, variant)
	if err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	r := &run{job: job}

	h, err := o.poller.Submit(ctx, doc, variant.Feature())
	if err != nil {
		return nil, o.fail(ctx, r, err)
	}
	o.logger.Info("pipeline.submitted", "run_id", job.ID, "document_id", doc.ID, "job_id", h.JobID, "variant", variant)
	o.record(ctx, r, "set_backend_job", o.jobs.SetBackendJob(ctx, job.ID, h.JobID))

	return r, o.await(ctx, r, h)
}

// resume attaches to an existing backend job without resubmitting. Every
// attempt records its own ledger row; earlier rows keep their final state.
func (o *Orchestrator) resume(ctx context.Context, h entity.JobHandle, variant constants.Variant) (*run, error) {
	if h.JobID == "" {
		return nil, common.NewAppError("INVALID_INPUT", "job id is required", common.ErrInvalidInput)
	}
	h.Feature = variant.Feature()

	var job *entity.ExtractJob
	prior, err := o.jobs.GetByBackendJobID(ctx, h.JobID)
	switch {
	case err == nil:
		if h.DocumentID == "" {
			h.DocumentID = prior.DocumentID
		}
		job, err = o.jobs.Reopen(ctx, prior, variant)
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		o.logger.Info("pipeline.resumed", "run_id", job.ID, "prior_run_id", prior.ID, "prior_state", prior.State, "job_id", h.JobID, "variant", variant)
	case errors.Is(err, common.ErrNotFound):
		job, err = o.jobs.Start(ctx, entity.Document{ID: h.DocumentID}, variant)
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		o.record(ctx, &run{job: job}, "set_backend_job", o.jobs.SetBackendJob(ctx, job.ID, h.JobID))
		o.logger.Info("pipeline.resumed", "run_id", job.ID, "job_id", h.JobID, "variant", variant)
	default:
		return nil, fmt.Errorf("look up run: %w", err)
	}

	r := &run{job: job}
	return r, o.await(ctx, r, h)
}

func (o *Orchestrator) await(ctx context.Context, r *run, h entity.JobHandle) error {
	o.transition(ctx, r, constants.StatePolling)

	res, err := o.poller.AwaitCompletion(ctx, h, o.interval, o.maxWait)
	if err != nil {
		return o.fail(ctx, r, err)
	}
	r.result = res
	r.warnings = append(r.warnings, res.Warnings...)
	if res.Blocks.Len() == 0 {
		o.logger.Warn("pipeline.empty_result", "run_id", r.job.ID, "job_id", h.JobID)
		r.warnings = append(r.warnings, fmt.Sprintf("%v: recognition returned no blocks", common.ErrMalformedResult))
	}
	return nil
}

// fail moves the run to FAILED and hands back err unchanged.
func (o *Orchestrator) fail(ctx context.Context, r *run, err error) error {
	o.logger.Error("pipeline.failed", "run_id", r.job.ID, "document_id", r.job.DocumentID, "state", r.job.State, "err", err)
	r.job.State = constants.StateFailed
	o.record(ctx, r, "finish_failure", o.jobs.FinishFailure(context.WithoutCancel(ctx), r.job.ID, err.Error()))
	return err
}

func (o *Orchestrator) transition(ctx context.Context, r *run, state constants.PipelineState) {
	r.job.State = state
	o.record(ctx, r, "transition", o.jobs.Transition(ctx, r.job.ID, state))
}

// record logs ledger write failures; they never change the run's outcome.
func (o *Orchestrator) record(_ context.Context, r *run, op string, err error) {
	if err != nil {
		o.logger.Warn("pipeline.record.failed", "run_id", r.job.ID, "op", op, "err", err)
	}
}

// prepare checks the payload and fills in the media type.
func prepare(doc entity.Document) (entity.Document, error) {
	v := common.NewValidator()
	v.Field("id", doc.ID, common.Required, common.MaxLength(128))
	if doc.Location == nil {
		v.Field("content", doc.Content, common.NonEmptyBytes)
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return doc, err
	}

	if len(doc.Content) > 0 {
		doc.MediaType = constants.DetectMediaType(doc.MediaType, doc.Content)
		if !constants.IsSupportedMediaType(doc.MediaType) {
			return doc, common.NewAppError("INVALID_INPUT", "unsupported media type "+doc.MediaType, common.ErrInvalidInput)
		}
	}
	return doc, nil
}
