package pipeline

import (
	"context"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/repository"
)

const warnNoFields = "no key/value pairs resolved"

func (o *Orchestrator) finishText(ctx context.Context, r *run) (entity.TextResult, error) {
	lines := o.resolver.ExtractLines(r.result.Blocks)
	o.transition(ctx, r, constants.StateResolved)

	res := entity.TextResult{
		DocumentID:        r.job.DocumentID,
		JobID:             r.result.Handle.JobID,
		Text:              lines.Text,
		AverageConfidence: lines.AverageConfidence,
		LineCount:         lines.LineCount,
		Warnings:          r.warnings,
	}
	o.done(ctx, r, res, lines.LineCount, lines.AverageConfidence)
	return res, nil
}

func (o *Orchestrator) finishForm(ctx context.Context, r *run) (entity.FormResult, error) {
	fields := o.resolve(ctx, r)
	res := entity.FormResult{
		DocumentID: r.job.DocumentID,
		JobID:      r.result.Handle.JobID,
		Fields:     fields,
		Warnings:   r.warnings,
	}
	o.done(ctx, r, res, len(fields), o.resolver.ExtractLines(r.result.Blocks).AverageConfidence)
	return res, nil
}

func (o *Orchestrator) finishEntities(ctx context.Context, r *run) (entity.EntityResult, error) {
	fields := o.resolve(ctx, r)

	ents, err := o.entities.Extract(ctx, fields)
	if err != nil {
		return entity.EntityResult{}, o.fail(ctx, r, err)
	}
	o.transition(ctx, r, constants.StateExtracted)

	res := entity.EntityResult{
		DocumentID: r.job.DocumentID,
		JobID:      r.result.Handle.JobID,
		Fields:     fields,
		Entities:   ents,
		Warnings:   r.warnings,
	}
	o.done(ctx, r, res, len(fields), o.resolver.ExtractLines(r.result.Blocks).AverageConfidence)
	return res, nil
}

func (o *Orchestrator) resolve(ctx context.Context, r *run) []entity.FormField {
	fields := o.resolver.ResolveFormFields(r.result.Blocks)
	if len(fields) == 0 && r.result.Blocks.Len() > 0 {
		r.warnings = append(r.warnings, warnNoFields)
	}
	o.transition(ctx, r, constants.StateResolved)
	o.logger.Info("pipeline.resolve.ok", "run_id", r.job.ID, "fields", len(fields), "blocks", r.result.Blocks.Len())
	return fields
}

func (o *Orchestrator) done(ctx context.Context, r *run, result any, count int, conf float64) {
	r.job.State = constants.StateDone
	o.record(ctx, r, "finish_success", o.jobs.FinishSuccess(ctx, r.job.ID, repository.Outcome{
		FieldCount:        &count,
		AverageConfidence: &conf,
		Result:            result,
	}))
	o.logger.Info("pipeline.done", "run_id", r.job.ID, "document_id", r.job.DocumentID, "variant", r.job.Variant, "count", count)
}
