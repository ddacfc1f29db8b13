package tulsa

import "log/slog"

// Dispatcher wraps the shared receive end of a command channel. Go generics
// cannot give two instantiations of the same generic type different method
// bodies, so RunAsync and RunSync below are the two concrete specializations
// instead of methods on Dispatcher itself.
type Dispatcher[T any] struct {
	commands <-chan T
	logger   *slog.Logger
}

// NewDispatcher wraps commands for later dispatch by RunAsync or RunSync.
func NewDispatcher[T any](commands <-chan T, logger *slog.Logger) Dispatcher[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return Dispatcher[T]{commands: commands, logger: logger}
}

// RunAsync spawns the control goroutine for the async substrate. It returns
// immediately; the goroutine runs until the command channel is closed. Each
// onActive callback is invoked after a command is handled with the current
// live task count, letting a caller keep a tulsa_tasks_active gauge current
// without the scheduler itself depending on metrics.
func RunAsync(d Dispatcher[AsyncTask], workerThreads int, onActive ...func(int)) {
	go func() {
		d.logger.Info("async scheduler starting", "worker_threads", workerThreads)
		sched := NewAsyncScheduler(workerThreads, d.logger)
		for task := range d.commands {
			d.logger.Debug("async command received", "task_id", task.ID, "op", task.Op.String())
			sched.Handle(task)
			for _, fn := range onActive {
				fn(sched.Len())
			}
		}
		d.logger.Info("async scheduler stopped")
	}()
}

// RunSync spawns the control goroutine for the sync substrate. It returns
// immediately; the goroutine runs until the command channel is closed. See
// RunAsync for the onActive callback's contract.
func RunSync(d Dispatcher[SyncTask], onActive ...func(int)) {
	go func() {
		d.logger.Info("sync scheduler starting")
		sched := NewThreadScheduler(d.logger)
		for task := range d.commands {
			d.logger.Debug("sync command received", "task_id", task.ID, "op", task.Op.String())
			sched.Handle(task)
			for _, fn := range onActive {
				fn(sched.Len())
			}
		}
		d.logger.Info("sync scheduler stopped")
	}()
}
