// Package api wires the HTTP control plane: feed CRUD, fetch stats,
// health, and Prometheus metrics.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/unrolled/secure"

	"github.com/johanjanssens/tulsafeed/config"
	"github.com/johanjanssens/tulsafeed/feed"
	"github.com/johanjanssens/tulsafeed/metrics"
)

// Server bundles the dependencies the handlers need.
type Server struct {
	Registry *feed.Registry
	Async    feed.Adapter
	Sync     feed.Adapter
	Cache    *feed.StatsCache
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// HTTPClient performs the immediate, out-of-band fetches issued by
	// handleRefreshFeeds; it is independent of whatever client the
	// scheduled adapter uses.
	HTTPClient *http.Client
	// RefreshWorkerLimit bounds how many feeds handleRefreshFeeds fetches
	// concurrently; zero means the asynctask.Manager default.
	RefreshWorkerLimit int
	// RefreshTimeout bounds a single feed's fetch inside a refresh batch.
	RefreshTimeout time.Duration
}

// adapter returns whichever substrate adapter is wired; exactly one of
// Async/Sync is non-nil depending on config.Scheduler.Substrate.
func (s *Server) adapter() feed.Adapter {
	if s.Async != nil {
		return s.Async
	}
	return s.Sync
}

// NewRouter builds the full HTTP handler: routing with optional bearer auth
// on mutating routes, then (innermost to outermost) request metrics, access
// logging, security headers, and CORS.
func NewRouter(s *Server, cfg config.ServerConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/feed", s.handleListFeeds).Methods(http.MethodGet)
	r.HandleFunc("/feed", requireAuth(cfg.Auth, s.handleCreateFeed)).Methods(http.MethodPost)
	r.HandleFunc("/feed/{id}", s.handleGetFeed).Methods(http.MethodGet)
	r.HandleFunc("/feed/{id}", requireAuth(cfg.Auth, s.handleUpdateFeed)).Methods(http.MethodPut)
	r.HandleFunc("/feed/{id}", requireAuth(cfg.Auth, s.handleDeleteFeed)).Methods(http.MethodDelete)
	r.HandleFunc("/feed/{id}/stats", s.handleFeedStats).Methods(http.MethodGet)
	r.HandleFunc("/feed/refresh", requireAuth(cfg.Auth, s.handleRefreshFeeds)).Methods(http.MethodPost)

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = r
	handler = metricsMiddleware(s.Metrics, r, handler)
	handler = handlers.CombinedLoggingHandler(slogWriter{logger}, handler)

	secureMW := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	handler = secureMW.Handler(handler)

	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		}).Handler(handler)
	}

	return handler
}

// slogWriter adapts a slog.Logger to the io.Writer CombinedLoggingHandler
// expects for its access log line.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Info("http access", "line", string(p))
	return len(p), nil
}

func metricsMiddleware(m *metrics.Metrics, router *mux.Router, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if tmpl, err := match.Route.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.ObserveHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
