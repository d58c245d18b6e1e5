package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

func newTestRepo(t *testing.T) (*extractJobRepo, *time.Time) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.HealthCheck(ctx, time.Second, nil))

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewExtractJobRepository(db.SQL, nil).(*extractJobRepo)
	repo.now = func() time.Time { return clock }
	return repo, &clock
}

func TestExtractJobRepository_Lifecycle(t *testing.T) {
	repo, clock := newTestRepo(t)
	ctx := context.Background()
	doc := entity.Document{ID: "doc-1", Filename: "form.pdf", MediaType: "application/pdf"}

	job, err := repo.Start(ctx, doc, constants.VariantFormEntities)
	require.NoError(t, err)
	assert.Equal(t, constants.FeatureForms, job.Feature)
	assert.Equal(t, constants.StateSubmitted, job.State)

	require.NoError(t, repo.SetBackendJob(ctx, job.ID, "tx-123"))
	require.NoError(t, repo.Transition(ctx, job.ID, constants.StatePolling))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatePolling, got.State)
	require.NotNil(t, got.BackendJobID)
	assert.Equal(t, "tx-123", *got.BackendJobID)
	assert.Nil(t, got.FinishedAt)
	assert.Equal(t, *clock, got.StartedAt)

	*clock = clock.Add(3 * time.Second)
	n := 2
	conf := 91.5
	require.NoError(t, repo.FinishSuccess(ctx, job.ID, Outcome{
		FieldCount:        &n,
		AverageConfidence: &conf,
		Result:            map[string]any{"fields": []entity.FormField{{Key: "Name", Value: "Jane Doe"}}},
	}))

	got, err = repo.GetByBackendJobID(ctx, "tx-123")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, constants.StateDone, got.State)
	assert.Equal(t, constants.VariantFormEntities, got.Variant)
	require.NotNil(t, got.FieldCount)
	assert.Equal(t, 2, *got.FieldCount)
	require.NotNil(t, got.AverageConfidence)
	assert.InDelta(t, 91.5, *got.AverageConfidence, 0.0001)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 3*time.Second, got.FinishedAt.Sub(got.StartedAt))

	var result map[string][]entity.FormField
	require.NoError(t, json.Unmarshal(got.ResultJSON, &result))
	assert.Equal(t, "Jane Doe", result["fields"][0].Value)
}

func TestExtractJobRepository_Failure(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	job, err := repo.Start(ctx, entity.Document{ID: "doc-2"}, constants.VariantText)
	require.NoError(t, err)
	require.NoError(t, repo.FinishFailure(ctx, job.ID, "recognition job failed"))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StateFailed, got.State)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "recognition job failed", *got.ErrorMessage)
	assert.Nil(t, got.ResultJSON)
}

func TestExtractJobRepository_Reopen(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	doc := entity.Document{ID: "doc-3", Filename: "w2.pdf", MediaType: "application/pdf"}

	first, err := repo.Start(ctx, doc, constants.VariantForm)
	require.NoError(t, err)
	require.NoError(t, repo.SetBackendJob(ctx, first.ID, "tx-9"))
	require.NoError(t, repo.FinishFailure(ctx, first.ID, "recognition timed out"))

	prior, err := repo.GetByBackendJobID(ctx, "tx-9")
	require.NoError(t, err)

	// The clock has not moved, so ordering relies on Reopen alone.
	second, err := repo.Reopen(ctx, prior, constants.VariantFormEntities)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.StartedAt.After(prior.StartedAt))

	latest, err := repo.GetByBackendJobID(ctx, "tx-9")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, constants.StateSubmitted, latest.State)
	assert.Equal(t, "w2.pdf", latest.Filename)
	assert.Equal(t, constants.VariantFormEntities, latest.Variant)
	require.NotNil(t, latest.BackendJobID)
	assert.Equal(t, "tx-9", *latest.BackendJobID)

	old, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StateFailed, old.State)

	_, err = repo.Reopen(ctx, &entity.ExtractJob{DocumentID: "doc-3"}, constants.VariantForm)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractJobRepository_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetByBackendJobID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = repo.Transition(ctx, uuid.New(), constants.StateDone)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNoopExtractJobRepository(t *testing.T) {
	repo := NewNoopExtractJobRepository()
	ctx := context.Background()

	job, err := repo.Start(ctx, entity.Document{ID: "d"}, constants.VariantForm)
	require.NoError(t, err)
	assert.NoError(t, repo.Transition(ctx, job.ID, constants.StatePolling))
	_, err = repo.Get(ctx, job.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
