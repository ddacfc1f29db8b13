package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/johanjanssens/tulsafeed/asynctask"
	"github.com/johanjanssens/tulsafeed/feed"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func pathID(r *http.Request) (uint64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feed.NewStatus("OK"))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, feed.NewStatus("OK"))
}

func (s *Server) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Registry.List())
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}
	f, ok := s.Registry.Get(id)
	if !ok {
		http.Error(w, "feed not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleCreateFeed(w http.ResponseWriter, r *http.Request) {
	var def feed.CreateFeed
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	f := s.Registry.Create(def)
	if err := s.adapter().Create(f); err != nil {
		s.Registry.Delete(f.ID)
		http.Error(w, "scheduler unavailable", http.StatusInternalServerError)
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveCommand(s.substrateLabel(), "create")
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleUpdateFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}

	var def feed.CreateFeed
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	f, ok := s.Registry.Update(id, def)
	if !ok {
		http.Error(w, "feed not found", http.StatusNotFound)
		return
	}
	if err := s.adapter().Update(f); err != nil {
		http.Error(w, "scheduler unavailable", http.StatusInternalServerError)
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveCommand(s.substrateLabel(), "update")
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}

	f, ok := s.Registry.Delete(id)
	if !ok {
		http.Error(w, "feed not found", http.StatusNotFound)
		return
	}
	if err := s.adapter().Delete(f); err != nil {
		http.Error(w, "scheduler unavailable", http.StatusInternalServerError)
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveCommand(s.substrateLabel(), "delete")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeedStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid feed id", http.StatusBadRequest)
		return
	}
	stats, ok := s.Cache.Get(id)
	if !ok {
		http.Error(w, "no fetch stats for feed", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRefreshFeeds fetches every registered feed immediately, outside the
// scheduler's regular period, and reports per-feed outcomes. It fans the
// batch out across an asynctask.Manager bounded by RefreshWorkerLimit so a
// large feed set can't open unbounded concurrent connections; the Manager
// is created fresh for this request and shut down before the handler
// returns, a request-scoped lifecycle rather than a long-lived pool.
func (s *Server) handleRefreshFeeds(w http.ResponseWriter, r *http.Request) {
	feeds := s.Registry.List()

	tm := asynctask.NewManager(
		asynctask.WithWorkerLimit(s.RefreshWorkerLimit),
		asynctask.WithLogger(s.loggerHandler()),
	)
	ctx := asynctask.WithContext(r.Context(), tm)
	defer tm.Shutdown(context.Background())

	results, err := s.refreshAll(ctx, feeds)
	if err != nil {
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// refreshAll submits one fetch per feed to the Manager stashed in ctx and
// waits for all of them. Each fetch's own deadline is bounded directly by
// RefreshTimeout and any resulting error (including a timeout) lands in
// feed.FetchStats.Err rather than being returned from the Runnable, so one
// feed's failure never aborts the rest of the batch via AwaitAll's
// all-or-nothing error propagation.
func (s *Server) refreshAll(ctx context.Context, feeds []feed.Feed) ([]feed.FetchStats, error) {
	tm := asynctask.FromContext(ctx)
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := s.RefreshTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ids := make([]asynctask.ID, len(feeds))
	for i, f := range feeds {
		f := f
		ids[i] = tm.Async(ctx, asynctask.RunnableFunc(func(ctx context.Context) (any, error) {
			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return s.fetchForRefresh(fetchCtx, client, f), nil
		}))
	}

	tasks, err := tm.AwaitAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]feed.FetchStats, len(tasks))
	for i, t := range tasks {
		results[i] = t.Result.(feed.FetchStats)
	}
	return results, nil
}

func (s *Server) fetchForRefresh(ctx context.Context, client *http.Client, f feed.Feed) feed.FetchStats {
	count, err := feed.Fetch(ctx, client, f)
	stats := feed.FetchStats{FeedID: f.ID, FetchedAt: time.Now()}
	if err != nil {
		stats.Err = err.Error()
	} else {
		stats.TripUpdates = count
	}
	if s.Cache != nil {
		s.Cache.Record(stats)
	}
	if s.Metrics != nil {
		s.Metrics.ObserveFetch(f.ID, count, err)
	}
	return stats
}

func (s *Server) loggerHandler() slog.Handler {
	if s.Logger != nil {
		return s.Logger.Handler()
	}
	return slog.NewTextHandler(io.Discard, nil)
}

func (s *Server) substrateLabel() string {
	if s.Async != nil {
		return "async"
	}
	return "sync"
}
