package tulsa

import (
	"context"
	"time"
)

// Operation is the lifecycle action a command applies to a task id.
type Operation int

const (
	// Create starts a new task under an id that should not already be live.
	Create Operation = iota
	// Update replaces whatever is currently running under an id.
	Update
	// Delete stops and removes whatever is currently running under an id.
	Delete
)

func (op Operation) String() string {
	switch op {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// AsyncTask carries a unit of work for the async substrate: a function that
// cooperates with cancellation by observing ctx.Done(). The scheduler takes
// ownership of Work at command time; callers must not reuse it afterward.
type AsyncTask struct {
	ID   uint64
	Op   Operation
	Work func(ctx context.Context)
}

// NewAsyncCreate builds a Create command for the async substrate.
func NewAsyncCreate(id uint64, work func(ctx context.Context)) AsyncTask {
	return AsyncTask{ID: id, Op: Create, Work: work}
}

// NewAsyncUpdate builds an Update command for the async substrate.
func NewAsyncUpdate(id uint64, work func(ctx context.Context)) AsyncTask {
	return AsyncTask{ID: id, Op: Update, Work: work}
}

// NewAsyncStop builds a Delete command for the async substrate. Its Work is
// a no-op placeholder; the scheduler never schedules it.
func NewAsyncStop(id uint64) AsyncTask {
	return AsyncTask{ID: id, Op: Delete, Work: func(context.Context) {}}
}

// SyncTask carries a unit of work for the sync substrate: a callable invoked
// repeatedly at Period by a dedicated Runner goroutine.
type SyncTask struct {
	ID     uint64
	Op     Operation
	Period time.Duration
	Work   func()
}

// NewSyncCreate builds a Create command for the sync substrate.
func NewSyncCreate(id uint64, period time.Duration, work func()) SyncTask {
	return SyncTask{ID: id, Op: Create, Period: period, Work: work}
}

// NewSyncUpdate builds an Update command for the sync substrate.
func NewSyncUpdate(id uint64, period time.Duration, work func()) SyncTask {
	return SyncTask{ID: id, Op: Update, Period: period, Work: work}
}

// NewSyncStop builds a Delete command for the sync substrate. Period is
// zero and Work is a no-op, per the model's reserved-zero convention.
func NewSyncStop(id uint64) SyncTask {
	return SyncTask{ID: id, Op: Delete, Period: 0, Work: func() {}}
}
