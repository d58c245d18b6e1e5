package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

type noopExtractJobRepo struct{}

// NewNoopExtractJobRepository records nothing. Lookups always miss.
func NewNoopExtractJobRepository() ExtractJobRepository {
	return noopExtractJobRepo{}
}

func (noopExtractJobRepo) Start(_ context.Context, doc entity.Document, variant constants.Variant) (*entity.ExtractJob, error) {
	return &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		Feature:    variant.Feature(),
		Variant:    variant,
		State:      constants.StateSubmitted,
		StartedAt:  time.Now().UTC(),
	}, nil
}

func (n noopExtractJobRepo) Reopen(ctx context.Context, prior *entity.ExtractJob, variant constants.Variant) (*entity.ExtractJob, error) {
	job, _ := n.Start(ctx, entity.Document{ID: prior.DocumentID, Filename: prior.Filename, MediaType: prior.MediaType}, variant)
	job.BackendJobID = prior.BackendJobID
	return job, nil
}

func (noopExtractJobRepo) SetBackendJob(context.Context, uuid.UUID, string) error { return nil }

func (noopExtractJobRepo) Transition(context.Context, uuid.UUID, constants.PipelineState) error {
	return nil
}

func (noopExtractJobRepo) FinishSuccess(context.Context, uuid.UUID, Outcome) error { return nil }

func (noopExtractJobRepo) FinishFailure(context.Context, uuid.UUID, string) error { return nil }

func (noopExtractJobRepo) Get(context.Context, uuid.UUID) (*entity.ExtractJob, error) {
	return nil, common.NewAppError("NOT_FOUND", "job ledger disabled", common.ErrNotFound)
}

func (noopExtractJobRepo) GetByBackendJobID(context.Context, string) (*entity.ExtractJob, error) {
	return nil, common.NewAppError("NOT_FOUND", "job ledger disabled", common.ErrNotFound)
}
