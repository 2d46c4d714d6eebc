package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/compose-network/countdown/countdown-app/config"
	"github.com/compose-network/countdown/metrics"
	apisrv "github.com/compose-network/countdown/server/api"
	apimw "github.com/compose-network/countdown/server/api/middleware"
	"github.com/compose-network/countdown/x/timer"
	timershttp "github.com/compose-network/countdown/x/timer/http"
)

// App represents the countdown service
type App struct {
	cfg  *config.Config
	log  zerolog.Logger
	root zerolog.Logger

	timers *timer.Collection
	pool   *timer.PoolSpawner

	// API server (HTTP)
	apiServer *apisrv.Server

	// Shutdown management
	shutdownFns []func() error

	startedAt time.Time
	cancel    context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg:         cfg,
		log:         log.With().Str("component", "app").Logger(),
		root:        log,
		shutdownFns: make([]func() error, 0),
		startedAt:   time.Now(),
	}

	if err := app.initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize sets up the timer engine and the HTTP API.
func (a *App) initialize(_ context.Context) error {
	timerCfg := timer.DefaultConfig(a.root)
	timerCfg.TickInterval = a.cfg.Engine.TickInterval
	timerCfg.MaxOvertime = a.cfg.Engine.MaxOvertime

	if a.cfg.Engine.PoolSize > 0 {
		pool, err := timer.NewPoolSpawner(a.cfg.Engine.PoolSize, a.root)
		if err != nil {
			return err
		}
		a.pool = pool
		timerCfg.Spawner = pool
	}

	collectionCfg := timer.DefaultCollectionConfig(a.root)
	collectionCfg.Timer = timerCfg
	collectionCfg.InitialTimers = a.cfg.Engine.InitialTimers
	collectionCfg.MinTimers = a.cfg.Engine.MinTimers
	if a.cfg.Metrics.Enabled {
		collectionCfg.Metrics = timer.NewMetrics()
	}
	a.timers = timer.NewCollection(collectionCfg)

	// Closing every timer frees its pool worker, so the pool goes last.
	a.shutdownFns = append(a.shutdownFns, func() error {
		a.timers.Close()
		return nil
	})
	if a.pool != nil {
		a.shutdownFns = append(a.shutdownFns, func() error {
			a.pool.Release()
			return nil
		})
	}

	apiCfg := apisrv.Config{
		ListenAddr:        a.cfg.API.ListenAddr,
		ReadHeaderTimeout: a.cfg.API.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.API.ReadTimeout,
		WriteTimeout:      a.cfg.API.WriteTimeout,
		IdleTimeout:       a.cfg.API.IdleTimeout,
		MaxHeaderBytes:    a.cfg.API.MaxHeaderBytes,
		ShutdownTimeout:   a.cfg.API.ShutdownTimeout,
	}
	s := apisrv.NewServer(apiCfg, a.root)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log, "/health", "/ready", a.cfg.Metrics.Path))
	if a.cfg.API.CORS {
		s.EnableCORS(a.cfg.API.CORSOrigins...)
	}

	// Health/readiness/stats
	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)
	s.Router.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	// Metrics
	if a.cfg.Metrics.Enabled {
		httpMetrics := apimw.NewHTTPMetrics(metrics.NewComponentRegistry("countdown", "http"))
		s.Router.Use(apimw.Metrics(httpMetrics))
		s.Router.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	// Timers API
	timersHandler := timershttp.NewHandler(a.timers, a.root, timershttp.WithHeartbeat(a.cfg.API.EventHeartbeat))
	timersHandler.RegisterMux(s.Router)

	a.apiServer = s

	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go a.metricsReporter(runCtx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.apiServer.Start(runCtx)
	}()

	return a.runWithGracefulShutdown(runCtx, serverErr)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context, serverErr <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.log.Info().Int("timers", a.timers.Len()).Msg("Countdown service started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			a.log.Error().Err(err).Msg("API server error")
			runErr = fmt.Errorf("api server: %w", err)
		}
		// Start returned, nothing left to wait for.
		serverErr = nil
	}

	if a.cancel != nil {
		a.cancel()
	}
	if serverErr != nil {
		if err := <-serverErr; err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown closes every timer and releases the tick pool.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	var errs []error
	for _, fn := range a.shutdownFns {
		if err := fn(); err != nil {
			a.log.Error().Err(err).Msg("Shutdown function error")
			errs = append(errs, err)
		}
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return errors.Join(errs...)
}

// handleHealth responds to health check requests.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// handleReady reports ready while the collection holds its minimum.
func (a *App) handleReady(w http.ResponseWriter, _ *http.Request) {
	n := a.timers.Len()

	status := "ready"
	code := http.StatusOK
	if n < a.timers.Min() {
		status = "below_minimum"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":"%s","timers":%d}`, status, n)
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a.GetStats())
}

// GetStats returns application statistics.
func (a *App) GetStats() map[string]any {
	byMode := map[string]int{
		timer.ModeStopped.String(): 0,
		timer.ModeRunning.String(): 0,
		timer.ModePaused.String():  0,
		timer.ModeExpired.String(): 0,
	}
	active := 0
	list := a.timers.List()
	for _, t := range list {
		byMode[t.State().Mode.String()]++
		if t.Active() {
			active++
		}
	}

	stats := map[string]any{
		"timers":         len(list),
		"min_timers":     a.timers.Min(),
		"active_tasks":   active,
		"timers_by_mode": byMode,
		"uptime_seconds": time.Since(a.startedAt).Seconds(),
		"app_version":    Version,
		"app_build_time": BuildTime,
		"app_git_commit": GitCommit,
	}
	if a.pool != nil {
		stats["pool_running"] = a.pool.Running()
		stats["pool_cap"] = a.pool.Cap()
	}
	return stats
}

// metricsReporter periodically reports application statistics.
func (a *App) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Metrics.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := a.GetStats()
			byMode := stats["timers_by_mode"].(map[string]int)

			a.log.Info().
				Int("timers", stats["timers"].(int)).
				Int("active_tasks", stats["active_tasks"].(int)).
				Int("stopped", byMode[timer.ModeStopped.String()]).
				Int("running", byMode[timer.ModeRunning.String()]).
				Int("paused", byMode[timer.ModePaused.String()]).
				Int("expired", byMode[timer.ModeExpired.String()]).
				Float64("uptime_seconds", stats["uptime_seconds"].(float64)).
				Msg("Countdown statistics")
		}
	}
}
