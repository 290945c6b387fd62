package crawl

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/maltedev/catalog-crawler/internal/models"
)

// ErrFrontierClosed is returned by Pop once the frontier is closed and
// fully drained.
var ErrFrontierClosed = errors.New("frontier is closed")

// Task is one pending fetch on the frontier.
type Task struct {
	ID      uuid.UUID
	URL     string
	Stage   Stage
	Context models.CrawlContext
	// Page counts listing self-loop iterations, 1-based. The engine stops
	// following next-page links once the configured cap is reached.
	Page int
}

// NewTask builds a frontier task from a parsed link.
func NewTask(link Link) *Task {
	return &Task{
		ID:      uuid.New(),
		URL:     link.URL,
		Stage:   link.Stage,
		Context: link.Context,
		Page:    1,
	}
}

// Frontier is the FIFO work queue feeding the engine's workers. Pop blocks
// until a task arrives, the context is done, or the frontier is closed and
// drained.
type Frontier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []*Task
	closed bool
}

// NewFrontier builds an empty frontier.
func NewFrontier() *Frontier {
	f := &Frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Frontier) Push(task *Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFrontierClosed
	}

	f.tasks = append(f.tasks, task)
	f.cond.Signal()
	return nil
}

// Pop blocks until a task is available or the frontier closes. Cancellation
// is delivered by closing the frontier (the engine wires ctx.Done to Close),
// so a blocked Pop never outlives the crawl.
func (f *Frontier) Pop(ctx context.Context) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.tasks) == 0 && !f.closed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.cond.Wait()
	}

	if len(f.tasks) == 0 {
		return nil, ErrFrontierClosed
	}

	task := f.tasks[0]
	f.tasks = f.tasks[1:]
	return task, nil
}

func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// Close wakes every blocked Pop; remaining tasks are still drained.
func (f *Frontier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
	return nil
}
