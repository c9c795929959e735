// Package store persists the task ledger to disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/i474232898/aqi-forecast/internal/task"
)

var (
	// ErrNotFound is returned when no task exists for the given id.
	ErrNotFound = errors.New("task not found")

	// ErrTerminal is returned when an update targets a task that already
	// reached DONE or ERROR. The stored task is left untouched.
	ErrTerminal = errors.New("task is in a terminal state")
)

// FileLedger is a file-backed task ledger. Tasks are held in memory in
// insertion order and the whole store is rewritten on every mutation using a
// write-to-temporary-then-rename discipline, so no observer ever sees a
// half-written file. Writes are serialized behind a single store-wide lock;
// the ledger is not a hot path and favors simplicity over write concurrency.
type FileLedger struct {
	mu    sync.Mutex
	path  string
	tasks []*task.Task
	index map[string]int
}

// NewFileLedger opens (or creates) the ledger at path, reloading any tasks
// persisted by a previous run.
func NewFileLedger(path string) (*FileLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	l := &FileLedger{
		path:  path,
		index: make(map[string]int),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var tasks []*task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return fmt.Errorf("decode ledger: %w", err)
	}

	l.tasks = tasks
	for i, t := range tasks {
		l.index[t.ID] = i
	}
	return nil
}

// Create inserts a new task and persists the store.
func (l *FileLedger) Create(t *task.Task) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[t.ID]; exists {
		return fmt.Errorf("duplicate task id %s", t.ID)
	}

	l.tasks = append(l.tasks, t.Clone())
	l.index[t.ID] = len(l.tasks) - 1
	return l.persistLocked()
}

// Get returns a snapshot of the task with the given id.
func (l *FileLedger) Get(id string) (*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.tasks[i].Clone(), nil
}

// Update applies mutate as an atomic read-modify-write and persists the
// result. Terminal tasks are never mutated. If mutate returns an error or
// persistence fails, the prior in-memory and on-disk state is kept.
func (l *FileLedger) Update(id string, mutate func(*task.Task) error) (*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	if l.tasks[i].Done() {
		return nil, ErrTerminal
	}

	next := l.tasks[i].Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()

	prev := l.tasks[i]
	l.tasks[i] = next
	if err := l.persistLocked(); err != nil {
		l.tasks[i] = prev
		return nil, err
	}
	return next.Clone(), nil
}

// List returns snapshots of all tasks in insertion order.
func (l *FileLedger) List() ([]*task.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*task.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		out = append(out, t.Clone())
	}
	return out, nil
}

// persistLocked rewrites the ledger file atomically. Callers hold l.mu.
func (l *FileLedger) persistLocked() error {
	data, err := json.MarshalIndent(l.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
