package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/ner"
	"github.com/joseph-ayodele/form-extractor/internal/poller"
	"github.com/joseph-ayodele/form-extractor/internal/repository"
	"github.com/joseph-ayodele/form-extractor/internal/resolver"
)

// Orchestrator composes submit, poll, resolve and entity extraction into
// one run per document. Runs share no mutable state; the first failure is
// returned as is and nothing is retried.
type Orchestrator struct {
	logger   *slog.Logger
	poller   *poller.Poller
	resolver *resolver.Resolver
	entities *ner.Extractor
	jobs     repository.ExtractJobRepository
	interval time.Duration
	maxWait  time.Duration
}

type Option func(*Orchestrator)

// WithJobs records every run on the extract_job ledger.
func WithJobs(jobs repository.ExtractJobRepository) Option {
	return func(o *Orchestrator) {
		if jobs != nil {
			o.jobs = jobs
		}
	}
}

// WithPolling overrides the poller's interval and wait bound for every run.
func WithPolling(interval, maxWait time.Duration) Option {
	return func(o *Orchestrator) {
		o.interval = interval
		o.maxWait = maxWait
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(p *poller.Poller, r *resolver.Resolver, x *ner.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   slog.Default(),
		poller:   p,
		resolver: r,
		entities: x,
		jobs:     repository.NewNoopExtractJobRepository(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = resolver.New(resolver.WithLogger(o.logger))
	}
	if o.entities == nil {
		o.entities = ner.NewExtractor(nil, o.logger)
	}
	return o
}

// ExtractText returns the document's LINE text and average line confidence.
func (o *Orchestrator) ExtractText(ctx context.Context, doc entity.Document) (entity.TextResult, error) {
	r, err := o.begin(ctx, doc, constants.VariantText)
	if err != nil {
		return entity.TextResult{}, err
	}
	return o.finishText(ctx, r)
}

// ExtractForm returns the resolved key/value fields.
func (o *Orchestrator) ExtractForm(ctx context.Context, doc entity.Document) (entity.FormResult, error) {
	r, err := o.begin(ctx, doc, constants.VariantForm)
	if err != nil {
		return entity.FormResult{}, err
	}
	return o.finishForm(ctx, r)
}

// ExtractFormEntities returns the resolved fields plus names, places, phones and emails.
func (o *Orchestrator) ExtractFormEntities(ctx context.Context, doc entity.Document) (entity.EntityResult, error) {
	r, err := o.begin(ctx, doc, constants.VariantFormEntities)
	if err != nil {
		return entity.EntityResult{}, err
	}
	return o.finishEntities(ctx, r)
}

// ResumeText continues polling an already submitted text job.
func (o *Orchestrator) ResumeText(ctx context.Context, h entity.JobHandle) (entity.TextResult, error) {
	r, err := o.resume(ctx, h, constants.VariantText)
	if err != nil {
		return entity.TextResult{}, err
	}
	return o.finishText(ctx, r)
}

// ResumeForm continues polling an already submitted form job.
func (o *Orchestrator) ResumeForm(ctx context.Context, h entity.JobHandle) (entity.FormResult, error) {
	r, err := o.resume(ctx, h, constants.VariantForm)
	if err != nil {
		return entity.FormResult{}, err
	}
	return o.finishForm(ctx, r)
}

// ResumeFormEntities continues polling an already submitted form job and extracts entities.
func (o *Orchestrator) ResumeFormEntities(ctx context.Context, h entity.JobHandle) (entity.EntityResult, error) {
	r, err := o.resume(ctx, h, constants.VariantFormEntities)
	if err != nil {
		return entity.EntityResult{}, err
	}
	return o.finishEntities(ctx, r)
}

// Run dispatches on variant and packs the outcome for batch callers.
func (o *Orchestrator) Run(ctx context.Context, doc entity.Document, variant constants.Variant) entity.DocumentResult {
	start := time.Now()
	out := entity.DocumentResult{Document: doc, Variant: variant}
	switch variant {
	case constants.VariantText:
		res, err := o.ExtractText(ctx, doc)
		if err == nil {
			out.Text = &res
		}
		out.Err = err
	case constants.VariantForm:
		res, err := o.ExtractForm(ctx, doc)
		if err == nil {
			out.Form = &res
		}
		out.Err = err
	case constants.VariantFormEntities:
		res, err := o.ExtractFormEntities(ctx, doc)
		if err == nil {
			out.Entities = &res
		}
		out.Err = err
	default:
		out.Err = common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown variant %q", variant), common.ErrInvalidInput)
	}
	out.Elapsed = time.Since(start)
	return out
}
