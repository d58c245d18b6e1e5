package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

type ProcessorQueue struct {
	runner   Runner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// done is closed first on shutdown so blocked senders give up their read lock.
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithOnResult(fn ResultFunc) Option {
	return func(q *ProcessorQueue) {
		q.onResult = fn
	}
}

func NewProcessorQueue(runner Runner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	ctx = common.WithDocumentID(ctx, job.Document.ID)

	res := q.runner.Run(ctx, job.Document, job.Variant)
	if res.Err != nil {
		q.logger.Error("queue.process.failed",
			"worker_id", workerID,
			"document_id", job.Document.ID,
			"variant", job.Variant,
			"error", res.Err,
		)
	} else {
		q.logger.Info("queue.process.ok",
			"worker_id", workerID,
			"document_id", job.Document.ID,
			"variant", job.Variant,
			"elapsed_ms", res.Elapsed.Milliseconds(),
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds()-res.Elapsed.Milliseconds(),
		)
	}
	if q.onResult != nil {
		q.onResult(job, res)
	}
}

// Enqueue blocks while the buffer is full, until ctx is done or the queue shuts down.
// Concurrent callers only share a read lock, so a blocked sender never holds up Shutdown.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "document_id", job.Document.ID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "document_id", job.Document.ID, "variant", job.Variant)
		return nil
	default:
	}

	q.logger.Warn("queue.full.backpressure", "document_id", job.Document.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		q.logger.Warn("queue.enqueue.closed", "document_id", job.Document.ID)
		return ErrQueueClosed
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	first := false
	q.stopOnce.Do(func() {
		first = true
		close(q.done)

		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
	if !first {
		return
	}

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-drained:
		q.logger.Info("queue.drained")
	}
}

// Collect runs every job and returns the outcomes in submission order.
func Collect(ctx context.Context, runner Runner, jobs []Job, logger *slog.Logger, opts ...Option) ([]entity.DocumentResult, error) {
	out := make([]entity.DocumentResult, len(jobs))
	var mu sync.Mutex

	opts = append(opts, WithOnResult(func(job Job, res entity.DocumentResult) {
		mu.Lock()
		defer mu.Unlock()
		out[job.Seq] = res
	}))
	q := NewProcessorQueue(runner, logger, opts...)

	for i := range jobs {
		job := jobs[i]
		job.Seq = i
		if err := q.Enqueue(ctx, job); err != nil {
			q.Shutdown(ctx)
			return nil, err
		}
	}
	q.Shutdown(context.Background())
	return out, nil
}
