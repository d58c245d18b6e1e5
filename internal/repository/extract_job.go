package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Outcome is what a successful run records on its ledger row.
type Outcome struct {
	FieldCount        *int
	AverageConfidence *float64
	Result            any
}

type ExtractJobRepository interface {
	Start(ctx context.Context, doc entity.Document, variant constants.Variant) (*entity.ExtractJob, error)
	Reopen(ctx context.Context, prior *entity.ExtractJob, variant constants.Variant) (*entity.ExtractJob, error)
	SetBackendJob(ctx context.Context, id uuid.UUID, backendJobID string) error
	Transition(ctx context.Context, id uuid.UUID, state constants.PipelineState) error
	FinishSuccess(ctx context.Context, id uuid.UUID, out Outcome) error
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
	GetByBackendJobID(ctx context.Context, backendJobID string) (*entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewExtractJobRepository(db *sql.DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log, now: time.Now}
}

const selectColumns = `id, document_id, filename, media_type, feature, variant, backend_job_id, state,
	error_message, field_count, average_confidence, result_json, started_at_ms, finished_at_ms`

func (r *extractJobRepo) Start(ctx context.Context, doc entity.Document, variant constants.Variant) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		Feature:    variant.Feature(),
		Variant:    variant,
		State:      constants.StateSubmitted,
		StartedAt:  time.UnixMilli(r.now().UnixMilli()).UTC(),
	}
	if err := r.insert(ctx, job); err != nil {
		return nil, err
	}
	r.log.Info("extract_job.started", "id", job.ID, "document_id", doc.ID, "variant", variant)
	return job, nil
}

// Reopen opens a fresh run attached to the backend job prior submitted.
// prior keeps its state; the new row sorts after it in GetByBackendJobID.
func (r *extractJobRepo) Reopen(ctx context.Context, prior *entity.ExtractJob, variant constants.Variant) (*entity.ExtractJob, error) {
	if prior == nil || prior.BackendJobID == nil {
		return nil, common.NewAppError("INVALID_INPUT", "prior run has no backend job", common.ErrInvalidInput)
	}
	backendJobID := *prior.BackendJobID
	job := &entity.ExtractJob{
		ID:           uuid.New(),
		DocumentID:   prior.DocumentID,
		Filename:     prior.Filename,
		MediaType:    prior.MediaType,
		Feature:      variant.Feature(),
		Variant:      variant,
		BackendJobID: &backendJobID,
		State:        constants.StateSubmitted,
		StartedAt:    time.UnixMilli(max(r.now().UnixMilli(), prior.StartedAt.UnixMilli()+1)).UTC(),
	}
	if err := r.insert(ctx, job); err != nil {
		return nil, err
	}
	r.log.Info("extract_job.reopened", "id", job.ID, "prior_id", prior.ID, "backend_job_id", backendJobID)
	return job, nil
}

func (r *extractJobRepo) insert(ctx context.Context, job *entity.ExtractJob) error {
	var backendJobID sql.NullString
	if job.BackendJobID != nil {
		backendJobID = sql.NullString{String: *job.BackendJobID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO extract_job
		(id, document_id, filename, media_type, feature, variant, backend_job_id, state, started_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID.String(), job.DocumentID, job.Filename, job.MediaType,
		string(job.Feature), string(job.Variant), backendJobID, string(job.State), job.StartedAt.UnixMilli(),
	)
	if err != nil {
		r.log.Error("extract_job.start.failed", "document_id", job.DocumentID, "err", err)
		return fmt.Errorf("%w: insert extract_job: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *extractJobRepo) SetBackendJob(ctx context.Context, id uuid.UUID, backendJobID string) error {
	return r.update(ctx, id, "set_backend_job",
		`UPDATE extract_job SET backend_job_id = $1 WHERE id = $2`,
		backendJobID, id.String())
}

func (r *extractJobRepo) Transition(ctx context.Context, id uuid.UUID, state constants.PipelineState) error {
	return r.update(ctx, id, "transition",
		`UPDATE extract_job SET state = $1 WHERE id = $2`,
		string(state), id.String())
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, id uuid.UUID, out Outcome) error {
	var result sql.NullString
	if out.Result != nil {
		b, err := json.Marshal(out.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		result = sql.NullString{String: string(b), Valid: true}
	}
	var fieldCount sql.NullInt64
	if out.FieldCount != nil {
		fieldCount = sql.NullInt64{Int64: int64(*out.FieldCount), Valid: true}
	}
	var conf sql.NullFloat64
	if out.AverageConfidence != nil {
		conf = sql.NullFloat64{Float64: *out.AverageConfidence, Valid: true}
	}
	err := r.update(ctx, id, "finish_success",
		`UPDATE extract_job SET state = $1, field_count = $2, average_confidence = $3,
			result_json = $4, finished_at_ms = $5 WHERE id = $6`,
		string(constants.StateDone), fieldCount, conf, result, r.now().UnixMilli(), id.String())
	if err == nil {
		r.log.Info("extract_job.finished", "id", id, "state", constants.StateDone)
	}
	return err
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	err := r.update(ctx, id, "finish_failure",
		`UPDATE extract_job SET state = $1, error_message = $2, finished_at_ms = $3 WHERE id = $4`,
		string(constants.StateFailed), message, r.now().UnixMilli(), id.String())
	if err == nil {
		r.log.Warn("extract_job.finished", "id", id, "state", constants.StateFailed, "error", message)
	}
	return err
}

func (r *extractJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM extract_job WHERE id = $1`, id.String())
	return scanJob(row)
}

// GetByBackendJobID returns the most recent run that submitted the given backend job.
func (r *extractJobRepo) GetByBackendJobID(ctx context.Context, backendJobID string) (*entity.ExtractJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM extract_job
		WHERE backend_job_id = $1 ORDER BY started_at_ms DESC LIMIT 1`, backendJobID)
	return scanJob(row)
}

func (r *extractJobRepo) update(ctx context.Context, id uuid.UUID, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("extract_job."+op+".failed", "id", id, "err", err)
		return fmt.Errorf("%w: %s: %w", common.ErrDatabase, op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "extract_job "+id.String(), common.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.ExtractJob, error) {
	var (
		job                          entity.ExtractJob
		id, feature, variant, state  string
		backendJobID, errMsg, result sql.NullString
		fieldCount, finishedAt       sql.NullInt64
		conf                         sql.NullFloat64
		startedAt                    int64
	)
	err := row.Scan(&id, &job.DocumentID, &job.Filename, &job.MediaType, &feature, &variant,
		&backendJobID, &state, &errMsg, &fieldCount, &conf, &result, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "extract_job not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan extract_job: %w", common.ErrDatabase, err)
	}

	if job.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: bad extract_job id %q: %w", common.ErrDatabase, id, err)
	}
	job.Feature = constants.Feature(feature)
	job.Variant = constants.Variant(variant)
	job.State = constants.PipelineState(state)
	job.StartedAt = time.UnixMilli(startedAt).UTC()
	if backendJobID.Valid {
		job.BackendJobID = &backendJobID.String
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	if fieldCount.Valid {
		n := int(fieldCount.Int64)
		job.FieldCount = &n
	}
	if conf.Valid {
		job.AverageConfidence = &conf.Float64
	}
	if result.Valid {
		job.ResultJSON = json.RawMessage(result.String)
	}
	if finishedAt.Valid {
		t := time.UnixMilli(finishedAt.Int64).UTC()
		job.FinishedAt = &t
	}
	return &job, nil
}
