package task

import (
	"context"
	"log"
	"sync"
)

// Processor executes one task to a terminal state.
type Processor interface {
	Process(ctx context.Context, id string)
}

// Runner hands submitted task ids to a worker pool over a buffered channel.
// Workers run detached from the request path, so submitters never wait on
// fetch or predict latency.
type Runner struct {
	ledger  Ledger
	proc    Processor
	queue   chan string
	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner with the given worker count and queue capacity.
func NewRunner(ledger Ledger, proc Processor, workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ledger:  ledger,
		proc:    proc,
		queue:   make(chan string, queueSize),
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start recovers tasks left in a non-terminal state by a previous run and
// launches the worker pool.
func (r *Runner) Start() error {
	if err := r.recover(); err != nil {
		return err
	}

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	return nil
}

// Stop drains nothing: in-flight tasks observe the cancelled context at their
// next network boundary and the interrupted task is re-run on the next start.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

// Enqueue submits a task id for background execution. A full queue is not
// fatal: the task stays QUEUED in the ledger and the recovery sweep redelivers
// it, which gives at-least-once execution per task id.
func (r *Runner) Enqueue(id string) bool {
	select {
	case r.queue <- id:
		return true
	default:
		log.Printf("runner: queue full, task %s deferred to sweep", id)
		return false
	}
}

// recover requeues every task that never reached a terminal state.
func (r *Runner) recover() error {
	tasks, err := r.ledger.List()
	if err != nil {
		return err
	}

	var requeued int
	for _, t := range tasks {
		if t.Done() {
			continue
		}
		if r.Enqueue(t.ID) {
			requeued++
		}
	}
	if requeued > 0 {
		log.Printf("runner: requeued %d unfinished tasks", requeued)
	}
	return nil
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case taskID, ok := <-r.queue:
			if !ok {
				return
			}
			log.Printf("runner: worker %d picked up task %s", id, taskID)
			r.proc.Process(r.ctx, taskID)
		}
	}
}
