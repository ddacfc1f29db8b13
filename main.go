package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/johanjanssens/tulsafeed/api"
	"github.com/johanjanssens/tulsafeed/config"
	"github.com/johanjanssens/tulsafeed/feed"
	"github.com/johanjanssens/tulsafeed/logging"
	"github.com/johanjanssens/tulsafeed/metrics"
	"github.com/johanjanssens/tulsafeed/tulsa"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tulsafeed: loading configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// promhttp.Handler() in api.NewRouter gathers from the default
	// registry, so collectors are registered there rather than on a
	// private prometheus.Registry.
	m := metrics.New(prometheus.DefaultRegisterer)
	m.SetWorkerThreads(cfg.Scheduler.WorkerThreads)

	registry := feed.NewRegistry()
	cache := feed.NewStatsCache(cfg.Fetch.StatsCacheMax, cfg.Fetch.StatsCacheTTL.Duration)
	client := &http.Client{Timeout: cfg.Fetch.Timeout.Duration}

	server := &api.Server{
		Registry:           registry,
		Cache:              cache,
		Metrics:            m,
		Logger:             logger,
		HTTPClient:         client,
		RefreshWorkerLimit: cfg.Scheduler.WorkerThreads,
		RefreshTimeout:     cfg.Fetch.Timeout.Duration,
	}

	switch {
	case strings.EqualFold(cfg.Scheduler.Substrate, "sync"):
		commands := make(chan tulsa.SyncTask)
		server.Sync = feed.NewSyncAdapter(commands, client, cache, m, logger)
		tulsa.RunSync(tulsa.NewDispatcher[tulsa.SyncTask](commands, logger), func(n int) {
			m.SetTasksActive("sync", n)
		})
	default:
		commands := make(chan tulsa.AsyncTask)
		server.Async = feed.NewAsyncAdapter(commands, client, cache, m, logger)
		tulsa.RunAsync(tulsa.NewDispatcher[tulsa.AsyncTask](commands, logger), cfg.Scheduler.WorkerThreads, func(n int) {
			m.SetTasksActive("async", n)
		})
	}

	handler := api.NewRouter(server, cfg.Server)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler,
	}

	go func() {
		logger.Info("tulsafeed starting",
			"addr", httpServer.Addr,
			"substrate", cfg.Scheduler.Substrate,
			"worker_threads", cfg.Scheduler.WorkerThreads)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listener failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
