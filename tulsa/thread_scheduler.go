package tulsa

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// taskRunner is per-task bookkeeping for the sync substrate: a pinned
// goroutine plus the stop/done channels used to signal and join it.
type taskRunner struct {
	id     uint64
	period time.Duration
	work   func()
	stopCh chan struct{}
	done   chan struct{}
}

func newTaskRunner(id uint64, period time.Duration, work func()) *taskRunner {
	return &taskRunner{
		id:     id,
		period: period,
		work:   work,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// start spawns the runner's pinned goroutine. The goroutine locks itself to
// its OS thread for its whole lifetime, the closest Go idiom to "one
// dedicated OS thread per task".
func (r *taskRunner) start(logger *slog.Logger) {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(r.done)

		logger.Debug("sync task runner started", "task_id", r.id)

		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-r.stopCh:
				logger.Debug("sync task runner stopped", "task_id", r.id)
				return
			case <-timer.C:
				r.invoke(logger)
				timer.Reset(r.period)
			}
		}
	}()
}

func (r *taskRunner) invoke(logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("sync task panicked", "task_id", r.id, "panic", fmt.Sprint(rec))
		}
	}()
	r.work()
}

// stop signals the runner and blocks until its goroutine has exited (the
// "join"). The signal is sent and released before this function blocks on
// done, so the signalling and executing paths cannot deadlock each other.
func (r *taskRunner) stop() {
	close(r.stopCh)
	<-r.done
}

// ThreadScheduler owns a set of taskRunners, one dedicated pinned goroutine
// per live task. Like AsyncScheduler it is single-writer: only the control
// goroutine that owns an instance ever calls handle.
type ThreadScheduler struct {
	runners []*taskRunner
	logger  *slog.Logger
}

// NewThreadScheduler creates a ThreadScheduler.
func NewThreadScheduler(logger *slog.Logger) *ThreadScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadScheduler{logger: logger}
}

// Len reports the number of currently live runners.
func (s *ThreadScheduler) Len() int {
	return len(s.runners)
}

// Handle applies one command to completion before returning.
func (s *ThreadScheduler) Handle(task SyncTask) {
	switch task.Op {
	case Create:
		s.stop(task.ID)
		s.start(task)
	case Update:
		s.stop(task.ID)
		s.start(task)
	case Delete:
		s.stop(task.ID)
	}
}

func (s *ThreadScheduler) findIndex(id uint64) int {
	for i, r := range s.runners {
		if r.id == id {
			return i
		}
	}
	return -1
}

func (s *ThreadScheduler) start(task SyncTask) {
	runner := newTaskRunner(task.ID, task.Period, task.Work)
	runner.start(s.logger)
	s.runners = append(s.runners, runner)
	s.logger.Debug("sync task created", "task_id", task.ID, "period", task.Period)
}

func (s *ThreadScheduler) stop(id uint64) {
	idx := s.findIndex(id)
	if idx < 0 {
		s.logger.Debug("sync task stop ignored: unknown id", "task_id", id)
		return
	}
	runner := s.runners[idx]
	runner.stop()
	s.runners = append(s.runners[:idx], s.runners[idx+1:]...)
	s.logger.Debug("sync task removed", "task_id", id)
}
