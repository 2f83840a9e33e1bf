package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/modelrank/internal/adapters/fetch"
	"github.com/okian/modelrank/internal/adapters/http/api"
	"github.com/okian/modelrank/internal/adapters/http/swagger"
	"github.com/okian/modelrank/internal/adapters/notify"
	"github.com/okian/modelrank/internal/adapters/repository"
	app "github.com/okian/modelrank/internal/app"
	"github.com/okian/modelrank/internal/config"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	once := flag.Bool("once", false, "Run a single ingestion cycle and exit")
	flag.Parse()

	// Disable default Go metrics collection to avoid duplicate metrics;
	// the tracker collects its own system metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.NewSQLStore(cfg.DatabasePath)
	if err != nil {
		os.Stderr.WriteString("failed to open store: " + err.Error() + "\n")
		return
	}

	source := fetch.New(cfg.SourceURL,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.FetchTimeout()),
		fetch.WithMaxRetries(cfg.FetchMaxRetries),
		fetch.WithRetryDelay(cfg.FetchRetryDelay()),
	)

	notifier := notify.NewDiscord(cfg.DiscordWebhookURL,
		notify.WithEnabled(cfg.DiscordEnabled),
		notify.WithTopN(cfg.TopN),
	)

	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithStore(store),
		app.WithSource(source),
		app.WithNotifier(notifier),
		app.WithTopN(cfg.TopN),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	if *once {
		if err := svc.RunCycle(ctx); err != nil {
			loggerInstance.Error(ctx, "cycle failed", logger.Error(err))
			os.Exit(1)
		}
		return
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start the ingestion loop: one immediate cycle, then one per interval.
	go runIngestLoop(ctx, svc, cfg.IngestInterval(), loggerInstance)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register read API routes with the service dependency.
	apiServer := api.NewServer(svc, cfg.MaxRankingsLimit)
	apiServer.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// runIngestLoop runs one cycle immediately, then one per interval until
// the context ends. A failed cycle is logged and the loop keeps going;
// the next tick gets a fresh attempt.
func runIngestLoop(ctx context.Context, svc *app.Service, interval time.Duration, log logger.Logger) {
	if err := svc.RunCycle(ctx); err != nil {
		log.Error(ctx, "ingestion cycle failed", logger.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.RunCycle(ctx); err != nil {
				log.Error(ctx, "ingestion cycle failed", logger.Error(err))
			}
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
