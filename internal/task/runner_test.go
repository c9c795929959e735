package task_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/aqi-forecast/internal/store"
	"github.com/i474232898/aqi-forecast/internal/task"
)

// recordingProcessor marks each processed task DONE and remembers its id.
type recordingProcessor struct {
	ledger task.Ledger

	mu  sync.Mutex
	ids []string
}

func (p *recordingProcessor) Process(ctx context.Context, id string) {
	p.mu.Lock()
	p.ids = append(p.ids, id)
	p.mu.Unlock()

	_, _ = p.ledger.Update(id, func(t *task.Task) error {
		t.Status = task.StatusDone
		return nil
	})
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRunnerProcessesEnqueuedTasks(t *testing.T) {
	ledger, err := store.NewFileLedger(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	proc := &recordingProcessor{ledger: ledger}
	runner := task.NewRunner(ledger, proc, 3, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, ledger.Create(&task.Task{ID: id, Status: task.StatusQueued, PredictionHours: 12}))
		assert.True(t, runner.Enqueue(id))
	}

	waitFor(t, func() bool { return len(proc.processed()) == len(ids) })
	assert.ElementsMatch(t, ids, proc.processed())
}

func TestRunnerStartRecoversUnfinishedTasks(t *testing.T) {
	ledger, err := store.NewFileLedger(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	// Tasks stranded mid-flight by a previous run.
	require.NoError(t, ledger.Create(&task.Task{ID: "queued", Status: task.StatusQueued}))
	require.NoError(t, ledger.Create(&task.Task{ID: "fetching", Status: task.StatusFetching}))
	require.NoError(t, ledger.Create(&task.Task{ID: "finished", Status: task.StatusQueued}))
	_, err = ledger.Update("finished", func(t *task.Task) error {
		t.Status = task.StatusDone
		return nil
	})
	require.NoError(t, err)

	proc := &recordingProcessor{ledger: ledger}
	runner := task.NewRunner(ledger, proc, 2, 10)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	waitFor(t, func() bool { return len(proc.processed()) == 2 })
	assert.ElementsMatch(t, []string{"queued", "fetching"}, proc.processed())
}

func TestRunnerEnqueueFullQueue(t *testing.T) {
	ledger, err := store.NewFileLedger(filepath.Join(t.TempDir(), "tasks.json"))
	require.NoError(t, err)

	// Runner never started: nothing drains the queue.
	runner := task.NewRunner(ledger, &recordingProcessor{ledger: ledger}, 1, 1)
	assert.True(t, runner.Enqueue("a"))
	assert.False(t, runner.Enqueue("b"), "full queue defers to the sweep instead of blocking")
}
