package tulsa

import (
	"context"
	"fmt"
	"log/slog"
)

// AsyncScheduler owns a set of cooperatively-cancelled tasks running as
// goroutines on the shared Go runtime. It is single-writer: only the
// control goroutine that owns a given instance ever calls handle, so the
// task map needs no locking of its own.
type AsyncScheduler struct {
	tasks         map[uint64]context.CancelFunc
	workerThreads int
	logger        *slog.Logger
}

// NewAsyncScheduler creates an AsyncScheduler. workerThreads is recorded for
// observability only; the Go runtime shares one goroutine scheduler
// process-wide, so it does not change how goroutines are actually scheduled.
func NewAsyncScheduler(workerThreads int, logger *slog.Logger) *AsyncScheduler {
	if workerThreads <= 0 {
		workerThreads = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncScheduler{
		tasks:         make(map[uint64]context.CancelFunc),
		workerThreads: workerThreads,
		logger:        logger,
	}
}

// Len reports the number of currently live tasks.
func (s *AsyncScheduler) Len() int {
	return len(s.tasks)
}

// Handle applies one command to completion before returning.
func (s *AsyncScheduler) Handle(task AsyncTask) {
	switch task.Op {
	case Create:
		// A live id is treated as Update rather than leaking the old
		// handle or refusing the command.
		s.stop(task.ID)
		s.start(task)
	case Update:
		s.stop(task.ID)
		s.start(task)
	case Delete:
		s.stop(task.ID)
	}
}

func (s *AsyncScheduler) start(task AsyncTask) {
	ctx, cancel := context.WithCancel(context.Background())
	s.tasks[task.ID] = cancel

	work := task.Work
	id := task.ID
	logger := s.logger
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("async task panicked", "task_id", id, "panic", fmt.Sprint(r))
			}
		}()
		work(ctx)
	}()

	s.logger.Debug("async task started", "task_id", task.ID)
}

func (s *AsyncScheduler) stop(id uint64) {
	cancel, ok := s.tasks[id]
	if !ok {
		s.logger.Debug("async task stop ignored: unknown id", "task_id", id)
		return
	}
	cancel()
	delete(s.tasks, id)
	s.logger.Debug("async task stopped", "task_id", id)
}
