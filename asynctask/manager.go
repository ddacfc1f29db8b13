// Package asynctask provides a small request-scoped worker pool used to fan
// a slow operation out across many independent units of work and collect
// every result. tulsafeed uses it for exactly one thing: the "refresh all
// feeds now" endpoint spawns one task per registered feed, bounded by a
// worker limit, and waits for all of them.
package asynctask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/rs/xid"
)

var (
	ErrTaskTimeout  = errors.New("task timed out")
	ErrTaskFailed   = errors.New("task failed")
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskCanceled = errors.New("task canceled")
	ErrTaskPanicked = errors.New("task panicked")
)

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCanceled
	StatusUnknown
)

type (
	// ID identifies one task submitted to a Manager.
	ID xid.ID

	// Status is the current lifecycle state of a task.
	Status int

	// Task holds a completed or in-flight task's outcome.
	Task struct {
		ID       ID            `json:"-"`
		Result   any           `json:"-"`
		Time     time.Time     `json:"-"`
		Error    error         `json:"error"`
		Duration time.Duration `json:"duration"`
		Status   string        `json:"status"`
	}

	// Runnable is one unit of fan-out work.
	Runnable interface {
		Run(ctx context.Context) (any, error)
	}

	// RunnableFunc adapts a plain function to Runnable.
	RunnableFunc func(ctx context.Context) (any, error)

	// Manager bounds and tracks a batch of concurrently-running Runnables.
	// It is built fresh per request (see asynctask.WithContext) and
	// discarded via Shutdown once the batch is done; it is not a
	// long-lived scheduler the way tulsa's is.
	Manager struct {
		tasks        sync.Map // ID -> *asyncTask
		tasksResult  sync.Map // ID -> Task
		tasksCancel  sync.Map // ID -> context.CancelFunc
		taskStatuses sync.Map // ID -> Status

		workerLimit     int
		workerSemaphore chan struct{}

		logger *slog.Logger

		mu           sync.Mutex
		wg           sync.WaitGroup
		shuttingDown bool
	}

	asyncTask struct {
		result Task
		done   chan struct{}
	}
)

// String renders a task ID the way xid renders its own IDs.
func (id ID) String() string {
	return xid.ID(id).String()
}

// Run invokes the wrapped function.
func (f RunnableFunc) Run(ctx context.Context) (any, error) {
	return f(ctx)
}

// String renders a Status for logging.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// WithTimeout bounds one Runnable's execution. A fetch that wedges past
// timeout is abandoned with ErrTaskTimeout rather than holding a worker
// slot for the rest of the batch.
func WithTimeout(runnable Runnable, timeout time.Duration) Runnable {
	return RunnableFunc(func(ctx context.Context) (any, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type result struct {
			value any
			err   error
		}
		resultChan := make(chan result, 1)

		go func() {
			value, err := runnable.Run(timeoutCtx)
			resultChan <- result{value, err}
		}()

		select {
		case res := <-resultChan:
			return res.value, res.err
		case <-timeoutCtx.Done():
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: task exceeded %v timeout", ErrTaskTimeout, timeout)
			}
			return nil, timeoutCtx.Err()
		}
	})
}

// NewManager creates a task manager bounded to workerLimit concurrent
// Runnables (default GOMAXPROCS*4, overridable via WithWorkerLimit).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		workerLimit:     runtime.GOMAXPROCS(0) * 4,
		workerSemaphore: make(chan struct{}, runtime.GOMAXPROCS(0)*4),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Async submits runnable for execution, returning its ID immediately.
// Blocks until a worker slot is free or ctx is canceled.
func (tm *Manager) Async(ctx context.Context, runnable Runnable) ID {
	taskID := ID(xid.New())
	t := &asyncTask{done: make(chan struct{})}

	tm.tasks.Store(taskID, t)
	tm.taskStatuses.Store(taskID, StatusPending)

	tm.mu.Lock()
	shuttingDown := tm.shuttingDown
	tm.mu.Unlock()
	if shuttingDown {
		tm.taskStatuses.Store(taskID, StatusCanceled)
		close(t.done)
		return taskID
	}

	select {
	case tm.workerSemaphore <- struct{}{}:
	case <-ctx.Done():
		t.result = Task{ID: taskID, Error: fmt.Errorf("%w", ErrTaskCanceled)}
		close(t.done)
		tm.taskStatuses.Store(taskID, StatusCanceled)
		return taskID
	}

	taskCtx, cancel := context.WithCancel(ctx)
	tm.tasksCancel.Store(taskID, cancel)
	tm.wg.Add(1)

	go func() {
		defer func() { <-tm.workerSemaphore }()
		defer tm.wg.Done()
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				t.result = Task{
					ID:       taskID,
					Error:    fmt.Errorf("%w: %v", ErrTaskPanicked, r),
					Time:     start,
					Duration: time.Since(start),
				}
				tm.tasksResult.Store(taskID, t.result)
				tm.taskStatuses.Store(taskID, StatusFailed)
				close(t.done)
			}
		}()

		tm.taskStatuses.Store(taskID, StatusRunning)
		result, err := runnable.Run(taskCtx)

		status := StatusCompleted
		if err != nil {
			status = StatusFailed
		} else if taskCtx.Err() != nil {
			status = StatusCanceled
			err = fmt.Errorf("%w: %v", ErrTaskCanceled, taskCtx.Err())
		}

		t.result = Task{
			ID:       taskID,
			Result:   result,
			Error:    err,
			Time:     start,
			Duration: time.Since(start),
		}
		tm.taskStatuses.Store(taskID, status)
		tm.tasksResult.Store(taskID, t.result)
		close(t.done)
	}()

	return taskID
}

// Await blocks until taskID finishes or ctx is canceled. Idempotent:
// repeated calls return the same cached result.
func (tm *Manager) Await(ctx context.Context, taskID ID) (Task, error) {
	value, ok := tm.tasks.Load(taskID)
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	t := value.(*asyncTask)

	select {
	case <-t.done:
		if t.result.Error != nil {
			return t.result, fmt.Errorf("task %s: %w: %w", taskID.String(), ErrTaskFailed, t.result.Error)
		}
		return t.result, nil
	case <-ctx.Done():
		tm.Cancel(taskID)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Task{}, fmt.Errorf("task %s: %w", taskID.String(), ErrTaskTimeout)
		}
		return Task{}, fmt.Errorf("task %s: %w: %v", taskID.String(), ErrTaskCanceled, ctx.Err())
	}
}

// AwaitAll blocks until every task in taskIDs finishes, returning results in
// the same order. If any task failed, it still waits for the others (it does
// not cancel them) and then returns one of the errors and no results;
// callers that want partial results regardless of per-task
// failure should make their Runnable swallow its own errors into its
// result value instead of returning them, the way the feed refresh
// handler folds fetch errors into feed.FetchStats.Err.
func (tm *Manager) AwaitAll(ctx context.Context, taskIDs []ID) ([]Task, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	tasks := make([]Task, len(taskIDs))
	errs := make(chan error, len(taskIDs))
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(taskIDs))
	for i, taskID := range taskIDs {
		go func(index int, id ID) {
			defer wg.Done()
			result, err := tm.Await(cancelCtx, id)
			if err != nil {
				errs <- fmt.Errorf("task %s: %w", id.String(), err)
				return
			}
			tasks[index] = result
		}(i, taskID)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(errs)
		if len(errs) > 0 {
			return nil, <-errs
		}
		return tasks, nil
	case <-ctx.Done():
		cancel()
		for _, taskID := range taskIDs {
			tm.Cancel(taskID)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w", ErrTaskTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrTaskCanceled, ctx.Err())
	}
}

// Cancel stops taskID and drops its state. Returns false if taskID is
// unknown.
func (tm *Manager) Cancel(taskID ID) bool {
	if _, exists := tm.taskStatuses.Load(taskID); !exists {
		return false
	}
	if cancelFunc, ok := tm.tasksCancel.Load(taskID); ok {
		cancelFunc.(context.CancelFunc)()
	}
	tm.taskStatuses.Store(taskID, StatusCanceled)
	tm.tasksCancel.Delete(taskID)
	tm.tasksResult.Delete(taskID)
	tm.tasks.Delete(taskID)
	tm.logger.Debug("task canceled", slog.String("id", taskID.String()))
	return true
}

// Shutdown cancels every outstanding task and waits for workers to drain,
// or for ctx to expire, whichever comes first. Called once per batch, in
// a defer right after the last Async/AwaitAll call.
func (tm *Manager) Shutdown(ctx context.Context) {
	tm.mu.Lock()
	tm.shuttingDown = true
	tm.mu.Unlock()

	tm.taskStatuses.Range(func(key, _ any) bool {
		if cancelFunc, ok := tm.tasksCancel.Load(key); ok {
			cancelFunc.(context.CancelFunc)()
		}
		return true
	})

	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	tm.tasks.Range(func(key, _ any) bool { tm.tasks.Delete(key); return true })
	tm.tasksCancel.Range(func(key, _ any) bool { tm.tasksCancel.Delete(key); return true })
	tm.tasksResult.Range(func(key, _ any) bool { tm.tasksResult.Delete(key); return true })
	tm.taskStatuses.Range(func(key, _ any) bool { tm.taskStatuses.Delete(key); return true })
}
