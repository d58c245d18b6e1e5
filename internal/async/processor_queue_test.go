package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

type fakeRunner struct {
	running atomic.Int32
	peak    atomic.Int32
	delay   time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, doc entity.Document, variant constants.Variant) entity.DocumentResult {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	res := entity.DocumentResult{Document: doc, Variant: variant}
	if doc.ID == "bad" {
		res.Err = errors.New("boom")
		return res
	}
	if common.DocumentIDFromContext(ctx) != doc.ID {
		res.Err = errors.New("document id missing from context")
		return res
	}
	res.Form = &entity.FormResult{DocumentID: doc.ID}
	return res
}

func TestCollect_PreservesOrder(t *testing.T) {
	runner := &fakeRunner{delay: 5 * time.Millisecond}
	jobs := []Job{
		{Document: entity.Document{ID: "a"}, Variant: constants.VariantForm},
		{Document: entity.Document{ID: "bad"}, Variant: constants.VariantForm},
		{Document: entity.Document{ID: "c"}, Variant: constants.VariantForm},
		{Document: entity.Document{ID: "d"}, Variant: constants.VariantForm},
	}

	out, err := Collect(context.Background(), runner, jobs, nil, WithWorkers(2), WithQueueSize(1))
	require.NoError(t, err)
	require.Len(t, out, 4)

	for i, res := range out {
		assert.Equal(t, jobs[i].Document.ID, res.Document.ID)
	}
	assert.Error(t, out[1].Err)
	assert.NoError(t, out[0].Err)
	assert.NoError(t, out[3].Err)
	assert.LessOrEqual(t, runner.peak.Load(), int32(2))
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	q := NewProcessorQueue(&fakeRunner{}, nil, WithWorkers(1), WithOnResult(func(job Job, _ entity.DocumentResult) {
		mu.Lock()
		seen = append(seen, job.Document.ID)
		mu.Unlock()
	}))

	require.NoError(t, q.Enqueue(context.Background(), Job{Document: entity.Document{ID: "x"}, Variant: constants.VariantText}))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Document: entity.Document{ID: "y"}})
	assert.ErrorIs(t, err, ErrQueueClosed)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"x"}, seen)
}

type blockingRunner struct {
	release chan struct{}
}

func (b *blockingRunner) Run(_ context.Context, doc entity.Document, variant constants.Variant) entity.DocumentResult {
	<-b.release
	return entity.DocumentResult{Document: doc, Variant: variant}
}

func TestProcessorQueue_BurstWithIdleConsumer(t *testing.T) {
	tests := []struct {
		name      string
		events    int
		workers   int
		queueSize int
	}{
		{name: "burst larger than queue", events: 300, workers: 4, queueSize: 64},
		{name: "single slot queue", events: 50, workers: 1, queueSize: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := NewOutcomes()
			q := NewProcessorQueue(&fakeRunner{delay: 2 * time.Millisecond}, nil,
				WithWorkers(tt.workers), WithQueueSize(tt.queueSize), WithOnResult(outcomes.Record))

			finished := make(chan error, 1)
			go func() {
				// Nobody reads Updated while enqueueing, like a watch loop busy with a burst.
				for i := 0; i < tt.events; i++ {
					if err := q.Enqueue(context.Background(), Job{Document: entity.Document{ID: "doc"}, Variant: constants.VariantText}); err != nil {
						finished <- err
						return
					}
				}
				q.Shutdown(context.Background())
				finished <- nil
			}()

			select {
			case err := <-finished:
				require.NoError(t, err)
			case <-time.After(10 * time.Second):
				t.Fatal("enqueue burst did not finish")
			}
			assert.Equal(t, tt.events, outcomes.Len())
			assert.Len(t, outcomes.Snapshot(), tt.events)

			select {
			case <-outcomes.Updated():
			default:
				t.Fatal("expected a pending update notification")
			}
		})
	}
}

func TestProcessorQueue_ShutdownReleasesBlockedEnqueue(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	q := NewProcessorQueue(runner, nil, WithWorkers(1), WithQueueSize(1))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Document: entity.Document{ID: "running"}}))
	require.NoError(t, q.Enqueue(ctx, Job{Document: entity.Document{ID: "buffered"}}))

	blocked := make(chan error, 1)
	go func() {
		blocked <- q.Enqueue(ctx, Job{Document: entity.Document{ID: "waiting"}})
	}()

	shutdown := make(chan struct{})
	go func() {
		q.Shutdown(ctx)
		close(shutdown)
	}()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked enqueue was not released by shutdown")
	}

	close(runner.release)
	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not drain")
	}
}
