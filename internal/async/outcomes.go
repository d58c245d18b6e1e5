package async

import (
	"sync"

	"github.com/joseph-ayodele/form-extractor/internal/entity"
)

// Outcomes accumulates worker results for a long-running consumer.
// Record never blocks, so a slow consumer cannot stall the worker pool.
type Outcomes struct {
	mu      sync.Mutex
	results []entity.DocumentResult
	notify  chan struct{}
}

func NewOutcomes() *Outcomes {
	return &Outcomes{notify: make(chan struct{}, 1)}
}

// Record is a ResultFunc.
func (o *Outcomes) Record(_ Job, res entity.DocumentResult) {
	o.mu.Lock()
	o.results = append(o.results, res)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Updated fires at least once after any number of Record calls.
func (o *Outcomes) Updated() <-chan struct{} {
	return o.notify
}

func (o *Outcomes) Snapshot() []entity.DocumentResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]entity.DocumentResult(nil), o.results...)
}

func (o *Outcomes) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}
