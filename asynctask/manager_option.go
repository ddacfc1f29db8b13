package asynctask

import "log/slog"

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithWorkerLimit caps how many feeds can be fetched concurrently in one
// refresh batch.
func WithWorkerLimit(limit int) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.workerLimit = limit
			m.workerSemaphore = make(chan struct{}, limit)
		}
	}
}

// WithLogger sets a custom logger for the Manager.
func WithLogger(handler slog.Handler) Option {
	return func(m *Manager) {
		m.logger = slog.New(handler)
	}
}
