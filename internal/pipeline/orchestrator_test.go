package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/ner"
	"github.com/joseph-ayodele/form-extractor/internal/poller"
	"github.com/joseph-ayodele/form-extractor/internal/recognition"
	"github.com/joseph-ayodele/form-extractor/internal/repository"
	"github.com/joseph-ayodele/form-extractor/internal/resolver"
)

type fakeBackend struct {
	mu        sync.Mutex
	script    []recognition.StatusResult
	submitErr error
	submits   int
	checks    int
}

func (f *fakeBackend) Submit(context.Context, entity.Document, constants.Feature) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "backend-1", nil
}

func (f *fakeBackend) Status(context.Context, string, constants.Feature) (recognition.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := min(f.checks, len(f.script)-1)
	f.checks++
	return f.script[i], nil
}

type fakeRecognizer struct{}

func (fakeRecognizer) Recognize(_ context.Context, text string) ([]ner.Entity, error) {
	if text == "" {
		return nil, nil
	}
	return []ner.Entity{{Text: "Jane Doe", Label: "PERSON"}, {Text: "Lagos", Label: "GPE"}}, nil
}

func conf(v float64) *float64 { return &v }

func formBlocks() []entity.Block {
	return []entity.Block{
		{ID: "l1", Type: entity.BlockLine, Text: "Name Jane Doe", Confidence: conf(90)},
		{ID: "l2", Type: entity.BlockLine, Text: "Contact jane@example.com or +1 555-123-4567", Confidence: conf(80)},
		{ID: "k1", Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleKey}, Relationships: []entity.Relationship{
			{Type: entity.RelationChild, IDs: []string{"w1"}},
			{Type: entity.RelationValue, IDs: []string{"v1"}},
		}},
		{ID: "v1", Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleValue}, Relationships: []entity.Relationship{
			{Type: entity.RelationChild, IDs: []string{"w2"}},
		}},
		{ID: "k2", Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleKey}, Relationships: []entity.Relationship{
			{Type: entity.RelationChild, IDs: []string{"w3"}},
			{Type: entity.RelationValue, IDs: []string{"v2"}},
		}},
		{ID: "v2", Type: entity.BlockKeyValueSet, EntityTypes: []string{entity.RoleValue}, Relationships: []entity.Relationship{
			{Type: entity.RelationChild, IDs: []string{"w4"}},
		}},
		{ID: "w1", Type: entity.BlockWord, Text: "Name"},
		{ID: "w2", Type: entity.BlockWord, Text: "Jane Doe"},
		{ID: "w3", Type: entity.BlockWord, Text: "Contact"},
		{ID: "w4", Type: entity.BlockWord, Text: "jane@example.com or +1 555-123-4567"},
	}
}

func succeeded(blocks []entity.Block) recognition.StatusResult {
	return recognition.StatusResult{Status: constants.JobStatusSucceeded, Blocks: blocks}
}

func inProgress() recognition.StatusResult {
	return recognition.StatusResult{Status: constants.JobStatusInProgress}
}

type harness struct {
	backend *fakeBackend
	jobs    repository.ExtractJobRepository
	orch    *Orchestrator
}

func newHarness(t *testing.T, backend *fakeBackend, maxWait time.Duration) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx))

	jobs := repository.NewExtractJobRepository(db.SQL, nil)
	p := poller.New(backend)
	orch := New(p, resolver.New(), ner.NewExtractor(fakeRecognizer{}, nil),
		WithJobs(jobs),
		WithPolling(time.Millisecond, maxWait),
	)
	return &harness{backend: backend, jobs: jobs, orch: orch}
}

func pdf(id string) entity.Document {
	return entity.Document{ID: id, Filename: id + ".pdf", MediaType: "application/pdf", Content: []byte("%PDF-1.4\n")}
}

func TestExtractFormEntities(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{
		inProgress(), inProgress(), succeeded(formBlocks()),
	}}, time.Minute)
	ctx := context.Background()

	res, err := h.orch.ExtractFormEntities(ctx, pdf("doc-1"))
	require.NoError(t, err)

	assert.Equal(t, "backend-1", res.JobID)
	assert.Equal(t, []entity.FormField{
		{Key: "Name", Value: "Jane Doe"},
		{Key: "Contact", Value: "jane@example.com or +1 555-123-4567"},
	}, res.Fields)
	assert.Equal(t, []string{"Jane Doe"}, res.Entities.Names.Sorted())
	assert.Equal(t, []string{"Lagos"}, res.Entities.Addresses.Sorted())
	assert.Equal(t, []string{"jane@example.com"}, res.Entities.Emails.Sorted())
	assert.Equal(t, []string{"+1 555-123-4567"}, res.Entities.PhoneNumbers.Sorted())
	assert.Equal(t, 3, h.backend.checks)

	job, err := h.jobs.GetByBackendJobID(ctx, "backend-1")
	require.NoError(t, err)
	assert.Equal(t, constants.StateDone, job.State)
	assert.Equal(t, constants.VariantFormEntities, job.Variant)
	require.NotNil(t, job.FieldCount)
	assert.Equal(t, 2, *job.FieldCount)
	assert.NotEmpty(t, job.ResultJSON)
}

func TestExtractText(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{succeeded(formBlocks())}}, time.Minute)

	res, err := h.orch.ExtractText(context.Background(), pdf("doc-2"))
	require.NoError(t, err)
	assert.Equal(t, "Name Jane Doe\nContact jane@example.com or +1 555-123-4567", res.Text)
	assert.InDelta(t, 85.0, res.AverageConfidence, 0.0001)
	assert.Equal(t, 2, res.LineCount)
}

func TestExtractForm_JobFailed(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{
		{Status: constants.JobStatusFailed, Message: "unreadable"},
	}}, time.Minute)
	ctx := context.Background()

	_, err := h.orch.ExtractForm(ctx, pdf("doc-3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRecognitionJobFailed)

	var jobErr *poller.JobError
	require.True(t, errors.As(err, &jobErr))
	assert.Equal(t, 1, h.backend.checks)

	job, err := h.jobs.GetByBackendJobID(ctx, "backend-1")
	require.NoError(t, err)
	assert.Equal(t, constants.StateFailed, job.State)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "unreadable")
}

func TestExtractForm_SubmissionFailed(t *testing.T) {
	h := newHarness(t, &fakeBackend{submitErr: errors.New("AccessDenied")}, time.Minute)

	_, err := h.orch.ExtractForm(context.Background(), pdf("doc-4"))
	assert.ErrorIs(t, err, common.ErrSubmissionFailed)
	assert.Equal(t, 0, h.backend.checks)
}

func TestExtractForm_TimeoutThenResume(t *testing.T) {
	backend := &fakeBackend{script: []recognition.StatusResult{inProgress()}}
	h := newHarness(t, backend, 3*time.Millisecond)
	ctx := context.Background()

	_, err := h.orch.ExtractForm(ctx, pdf("doc-5"))
	require.ErrorIs(t, err, common.ErrRecognitionTimeout)

	var jobErr *poller.JobError
	require.True(t, errors.As(err, &jobErr))

	failed, err := h.jobs.GetByBackendJobID(ctx, "backend-1")
	require.NoError(t, err)
	require.Equal(t, constants.StateFailed, failed.State)

	backend.mu.Lock()
	backend.script = []recognition.StatusResult{succeeded(formBlocks())}
	backend.checks = 0
	backend.mu.Unlock()

	res, err := h.orch.ResumeForm(ctx, jobErr.Handle)
	require.NoError(t, err)
	assert.Len(t, res.Fields, 2)
	assert.Equal(t, "doc-5", res.DocumentID)
	assert.Equal(t, 1, backend.submits)

	job, err := h.jobs.GetByBackendJobID(ctx, "backend-1")
	require.NoError(t, err)
	assert.NotEqual(t, failed.ID, job.ID)
	assert.Equal(t, constants.StateDone, job.State)
	assert.Equal(t, "doc-5", job.DocumentID)
	assert.Equal(t, "doc-5.pdf", job.Filename)

	// FAILED is terminal; the resumed attempt never rewrites it.
	prior, err := h.jobs.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StateFailed, prior.State)
	assert.Equal(t, failed.ErrorMessage, prior.ErrorMessage)
	assert.Equal(t, failed.FinishedAt, prior.FinishedAt)
}

func TestResume_EachAttemptGetsItsOwnRow(t *testing.T) {
	backend := &fakeBackend{script: []recognition.StatusResult{inProgress()}}
	h := newHarness(t, backend, 3*time.Millisecond)
	ctx := context.Background()

	_, err := h.orch.ExtractText(ctx, pdf("doc-8"))
	require.ErrorIs(t, err, common.ErrRecognitionTimeout)

	handle := entity.JobHandle{JobID: "backend-1"}
	seen := map[string]bool{}
	for attempt := 0; attempt < 3; attempt++ {
		_, err := h.orch.ResumeText(ctx, handle)
		require.ErrorIs(t, err, common.ErrRecognitionTimeout)

		job, err := h.jobs.GetByBackendJobID(ctx, "backend-1")
		require.NoError(t, err)
		assert.Equal(t, constants.StateFailed, job.State)
		assert.Equal(t, "doc-8", job.DocumentID)
		assert.False(t, seen[job.ID.String()], "attempt %d reused a row", attempt)
		seen[job.ID.String()] = true
	}
	assert.Equal(t, 1, backend.submits)
}

func TestResume_UnknownJobStartsLedgerRow(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{succeeded(formBlocks())}}, time.Minute)

	res, err := h.orch.ResumeText(context.Background(), entity.JobHandle{JobID: "backend-1", DocumentID: "external"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.LineCount)
	assert.Equal(t, 0, h.backend.submits)

	_, err = h.orch.ResumeText(context.Background(), entity.JobHandle{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractForm_EmptyResultIsSoft(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{succeeded(nil)}}, time.Minute)

	res, err := h.orch.ExtractFormEntities(context.Background(), pdf("doc-6"))
	require.NoError(t, err)
	assert.Empty(t, res.Fields)
	assert.Zero(t, res.Entities.Count())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no blocks")
}

func TestExtract_InvalidDocument(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{succeeded(nil)}}, time.Minute)
	ctx := context.Background()

	tests := []struct {
		name string
		doc  entity.Document
	}{
		{"missing id", entity.Document{Content: []byte("%PDF-1.4")}},
		{"empty content", entity.Document{ID: "d"}},
		{"unsupported type", entity.Document{ID: "d", MediaType: "text/plain", Content: []byte("hello")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.orch.ExtractForm(ctx, tc.doc)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
	assert.Equal(t, 0, h.backend.submits)
}

func TestRun_DispatchesVariant(t *testing.T) {
	h := newHarness(t, &fakeBackend{script: []recognition.StatusResult{succeeded(formBlocks())}}, time.Minute)
	ctx := context.Background()

	out := h.orch.Run(ctx, pdf("doc-7"), constants.VariantForm)
	require.NoError(t, out.Err)
	require.NotNil(t, out.Form)
	assert.Nil(t, out.Text)

	out = h.orch.Run(ctx, pdf("doc-8"), constants.Variant("bogus"))
	assert.ErrorIs(t, out.Err, common.ErrInvalidInput)
}
