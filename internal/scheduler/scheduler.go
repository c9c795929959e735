// Package scheduler redelivers tasks stranded in a non-terminal state.
package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/aqi-forecast/internal/task"
)

// Sweeper periodically rescans the ledger and requeues tasks that were
// accepted but never reached DONE or ERROR, for example after a crash or when
// the runner queue was momentarily full at submission. Together with the
// runner's startup recovery this gives at-least-once execution per task id.
type Sweeper struct {
	scheduler  *gocron.Scheduler
	ledger     task.Ledger
	queue      task.Queue
	interval   time.Duration
	stuckAfter time.Duration
}

// New creates a Sweeper. stuckAfter is how long a task may sit unchanged in a
// non-terminal state before it is considered stranded.
func New(ledger task.Ledger, queue task.Queue, interval, stuckAfter time.Duration) *Sweeper {
	return &Sweeper{
		scheduler:  gocron.NewScheduler(time.UTC),
		ledger:     ledger,
		queue:      queue,
		interval:   interval,
		stuckAfter: stuckAfter,
	}
}

// Start schedules the periodic sweep and starts the underlying scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future sweeps.
func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Sweeper) sweep() {
	tasks, err := s.ledger.List()
	if err != nil {
		log.Printf("sweeper: list tasks: %v", err)
		return
	}

	cutoff := time.Now().UTC().Add(-s.stuckAfter)
	var requeued int
	for _, t := range tasks {
		if t.Done() || t.UpdatedAt.After(cutoff) {
			continue
		}
		if s.queue.Enqueue(t.ID) {
			requeued++
		}
	}
	if requeued > 0 {
		log.Printf("sweeper: requeued %d stranded tasks", requeued)
	}
}
