package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/johanjanssens/tulsafeed/tulsa"
)

// ErrSchedulerUnavailable is returned when a command cannot be delivered
// because the scheduler's command channel has already been closed.
var ErrSchedulerUnavailable = errors.New("feed: scheduler unavailable")

// Observer receives the outcome of every fetch attempt, for metrics.
type Observer interface {
	ObserveFetch(feedID uint64, tripUpdates int, err error)
}

// Adapter translates feed lifecycle events into tulsa scheduler commands.
type Adapter interface {
	Create(f Feed) error
	Update(f Feed) error
	Delete(f Feed) error
}

// send delivers task on commands, converting a panic from sending on a
// closed channel into ErrSchedulerUnavailable.
func send[T any](commands chan<- T, task T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrSchedulerUnavailable
		}
	}()
	commands <- task
	return nil
}

type asyncAdapter struct {
	commands chan<- tulsa.AsyncTask
	client   *http.Client
	cache    *StatsCache
	observer Observer
	logger   *slog.Logger
}

// NewAsyncAdapter builds an Adapter that issues AsyncTask commands. work for
// a created feed is a recurring fetch loop, ticking every feed.Frequency
// seconds until the context it is run with is cancelled.
func NewAsyncAdapter(commands chan<- tulsa.AsyncTask, client *http.Client, cache *StatsCache, observer Observer, logger *slog.Logger) Adapter {
	return &asyncAdapter{commands: commands, client: client, cache: cache, observer: observer, logger: logger}
}

func (a *asyncAdapter) recurringFetch(f Feed) func(context.Context) {
	return func(ctx context.Context) {
		period := time.Duration(f.Frequency) * time.Second
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.fetchOnce(ctx, f)
			}
		}
	}
}

func (a *asyncAdapter) fetchOnce(ctx context.Context, f Feed) {
	count, err := Fetch(ctx, a.client, f)
	stats := FetchStats{FeedID: f.ID, FetchedAt: time.Now()}
	if err != nil {
		stats.Err = err.Error()
		if a.logger != nil {
			a.logger.Warn("feed fetch failed", "feed_id", f.ID, "feed_name", f.Name, "error", err)
		}
	} else {
		stats.TripUpdates = count
	}
	if a.cache != nil {
		a.cache.Record(stats)
	}
	if a.observer != nil {
		a.observer.ObserveFetch(f.ID, count, err)
	}
}

func (a *asyncAdapter) Create(f Feed) error {
	return send(a.commands, tulsa.NewAsyncCreate(f.ID, a.recurringFetch(f)))
}

func (a *asyncAdapter) Update(f Feed) error {
	return send(a.commands, tulsa.NewAsyncUpdate(f.ID, a.recurringFetch(f)))
}

func (a *asyncAdapter) Delete(f Feed) error {
	if a.cache != nil {
		a.cache.Delete(f.ID)
	}
	return send(a.commands, tulsa.NewAsyncStop(f.ID))
}

type syncAdapter struct {
	commands chan<- tulsa.SyncTask
	client   *http.Client
	cache    *StatsCache
	observer Observer
	logger   *slog.Logger
}

// NewSyncAdapter builds an Adapter that issues SyncTask commands, one
// dedicated runner per feed performing a single fetch per period tick.
func NewSyncAdapter(commands chan<- tulsa.SyncTask, client *http.Client, cache *StatsCache, observer Observer, logger *slog.Logger) Adapter {
	return &syncAdapter{commands: commands, client: client, cache: cache, observer: observer, logger: logger}
}

func (a *syncAdapter) fetchOnce(f Feed) {
	count, err := Fetch(context.Background(), a.client, f)
	stats := FetchStats{FeedID: f.ID, FetchedAt: time.Now()}
	if err != nil {
		stats.Err = err.Error()
		if a.logger != nil {
			a.logger.Warn("feed fetch failed", "feed_id", f.ID, "feed_name", f.Name, "error", err)
		}
	} else {
		stats.TripUpdates = count
	}
	if a.cache != nil {
		a.cache.Record(stats)
	}
	if a.observer != nil {
		a.observer.ObserveFetch(f.ID, count, err)
	}
}

func (a *syncAdapter) Create(f Feed) error {
	period := time.Duration(f.Frequency) * time.Second
	work := func() { a.fetchOnce(f) }
	return send(a.commands, tulsa.NewSyncCreate(f.ID, period, work))
}

func (a *syncAdapter) Update(f Feed) error {
	period := time.Duration(f.Frequency) * time.Second
	work := func() { a.fetchOnce(f) }
	return send(a.commands, tulsa.NewSyncUpdate(f.ID, period, work))
}

func (a *syncAdapter) Delete(f Feed) error {
	if a.cache != nil {
		a.cache.Delete(f.ID)
	}
	return send(a.commands, tulsa.NewSyncStop(f.ID))
}
