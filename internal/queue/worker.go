package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/async"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/storage"
)

// Message asks for one stored document to be processed.
type Message struct {
	JobID     string `json:"job_id"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Filename  string `json:"filename,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Variant   string `json:"variant"`
}

// Result is published to the output queue for every processed message.
type Result struct {
	JobID      string               `json:"job_id"`
	DocumentID string               `json:"document_id"`
	Variant    constants.Variant    `json:"variant"`
	Text       *entity.TextResult   `json:"text,omitempty"`
	Form       *entity.FormResult   `json:"form,omitempty"`
	Entities   *entity.EntityResult `json:"entities,omitempty"`
	Error      string               `json:"error,omitempty"`
	ElapsedMS  int64                `json:"elapsed_ms"`
}

type Worker struct {
	sqs        *SQSManager
	store      storage.Store
	runner     async.Runner
	logger     *slog.Logger
	timeout    time.Duration
	visibility time.Duration
	semaphore  chan struct{}
	wg         sync.WaitGroup
}

func NewWorker(sqs *SQSManager, store storage.Store, runner async.Runner, maxConcurrency int, timeout time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if timeout > maxVisibility-visibilityHeadway {
		timeout = maxVisibility - visibilityHeadway
	}
	return &Worker{
		sqs:        sqs,
		store:      store,
		runner:     runner,
		logger:     logger,
		timeout:    timeout,
		visibility: VisibilityFor(timeout),
		semaphore:  make(chan struct{}, maxConcurrency),
	}
}

// Start receives messages until ctx is done, then waits for in-flight work.
// Concurrency slots are claimed before receiving, so no message sits
// invisible on the queue while waiting for a free slot.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker.started", "queue", w.sqs.InputQueue, "visibility_s", int(w.visibility.Seconds()))
	for {
		slots := w.acquire(ctx)
		if slots == 0 {
			w.logger.Info("worker.stopping")
			w.wg.Wait()
			return
		}

		messages, err := w.sqs.ReceiveMessages(ctx, slots, w.visibility)
		if err != nil {
			w.release(slots)
			if ctx.Err() == nil {
				w.logger.Error("worker.receive.failed", "error", err)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
				}
			}
			continue
		}

		messages = messages[:min(len(messages), slots)]
		for _, msg := range messages {
			w.wg.Add(1)
			go w.handleMessage(ctx, msg)
		}
		w.release(slots - len(messages))
	}
}

// acquire blocks for one free slot, then claims any others that are free
// up to one receive batch. It returns 0 once ctx is done.
func (w *Worker) acquire(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return 0
	}
	n := 1
	for n < maxReceiveBatch {
		select {
		case w.semaphore <- struct{}{}:
			n++
		default:
			return n
		}
	}
	return n
}

func (w *Worker) release(n int) {
	for i := 0; i < n; i++ {
		<-w.semaphore
	}
}

// handleMessage owns one slot claimed by acquire.
func (w *Worker) handleMessage(ctx context.Context, msg types.Message) {
	defer w.wg.Done()
	defer w.release(1)

	var m Message
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &m); err != nil {
		w.logger.Error("worker.message.malformed", "message_id", aws.ToString(msg.MessageId), "error", err)
		return
	}

	res, err := w.Process(ctx, m)
	if err != nil {
		// left on the queue for redelivery or the dead letter queue
		w.logger.Error("worker.job.failed", "job_id", m.JobID, "error", err)
		return
	}

	if err := w.sqs.SendResult(ctx, res); err != nil {
		w.logger.Error("worker.result.send_failed", "job_id", m.JobID, "error", err)
		return
	}
	if err := w.sqs.DeleteMessage(ctx, aws.ToString(msg.ReceiptHandle)); err != nil {
		w.logger.Error("worker.message.delete_failed", "job_id", m.JobID, "error", err)
		return
	}
	w.logger.Info("worker.job.ok", "job_id", m.JobID, "document_id", res.DocumentID, "elapsed_ms", res.ElapsedMS)
}

// Process downloads the referenced object and runs the requested variant.
func (w *Worker) Process(ctx context.Context, m Message) (Result, error) {
	variant, ok := constants.ParseVariant(m.Variant)
	if !ok {
		return Result{}, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown variant %q", m.Variant), common.ErrInvalidInput)
	}
	v := common.NewValidator()
	v.Field("key", m.Key, common.Required, common.MaxLength(1024))
	if m.Bucket != "" {
		v.Field("bucket", m.Bucket, common.MinLength(3), common.MaxLength(63))
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return Result{}, err
	}

	loc := entity.ObjectLocation{Bucket: m.Bucket, Key: m.Key}
	if loc.Bucket == "" {
		loc.Bucket = w.store.Bucket()
	}
	data, err := w.store.Get(ctx, loc)
	if err != nil {
		return Result{}, fmt.Errorf("download %s/%s: %w", loc.Bucket, loc.Key, err)
	}

	name := m.Filename
	if name == "" {
		name = m.Key
	}
	doc := entity.NewDocument(name, constants.DetectMediaType(m.MediaType, data), data)
	doc.Location = &loc

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if m.JobID != "" {
		ctx = common.WithRequestID(ctx, m.JobID)
	}
	ctx = common.WithDocumentID(ctx, doc.ID)

	out := w.runner.Run(ctx, doc, variant)
	res := Result{
		JobID:      m.JobID,
		DocumentID: doc.ID,
		Variant:    variant,
		Text:       out.Text,
		Form:       out.Form,
		Entities:   out.Entities,
		ElapsedMS:  out.Elapsed.Milliseconds(),
	}
	if out.Err != nil {
		if errors.Is(out.Err, context.Canceled) {
			return Result{}, out.Err
		}
		res.Error = out.Err.Error()
	}
	return res, nil
}
