package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/usecase"
	"VariantMap/pkg/config"
	xhttp "VariantMap/pkg/http"
	applogger "VariantMap/pkg/logger"
	"VariantMap/pkg/metrics"
)

// Runner builds and publishes one map.
type Runner interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// Worker is a background consumer started alongside the HTTP server.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App encapsulates the application lifecycle for both batch and serve modes.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	recorder   *metrics.Recorder
	runner     Runner
	publisher  *usecase.MapPublisher
	httpServer *xhttp.Server
	worker     Worker
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	recorder *metrics.Recorder,
	runner Runner,
	publisher *usecase.MapPublisher,
	httpServer *xhttp.Server,
	worker Worker,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		recorder:   recorder,
		runner:     runner,
		publisher:  publisher,
		httpServer: httpServer,
		worker:     worker,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// RunBatch performs a single build, publishes it and pushes metrics when a
// Pushgateway is configured. A sink failure fails the batch.
func (a *App) RunBatch(ctx context.Context) error {
	run, err := a.runner.Run(ctx)
	a.push(ctx, run)
	if err != nil {
		return err
	}
	a.l.Info("batch complete",
		applogger.String("run_id", run.RunID),
		applogger.Int("variants", len(run.Map)),
		applogger.String("output_dir", a.cfg.Output.Dir),
	)
	return nil
}

func (a *App) push(ctx context.Context, run *models.RunResult) {
	if a.cfg.Metrics.PushURL == "" || a.recorder == nil {
		return
	}
	runID := ""
	if run != nil {
		runID = run.RunID
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := a.recorder.Push(pctx, a.cfg.Metrics.PushURL, a.cfg.Metrics.Job, runID); err != nil {
		a.l.Warn("metrics push failed", applogger.Error(err))
	}
}

// Serve builds once, then serves the HTTP API until SIGINT/SIGTERM or ctx ends.
// A failed initial build is logged; the API keeps serving the last stored run.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.runner.Run(ctx); err != nil {
		a.l.Error("initial build failed", applogger.Error(err))
	}

	if a.worker != nil {
		if err := a.worker.Start(ctx); err != nil {
			return fmt.Errorf("queue start: %w", err)
		}
	}
	if err := a.httpServer.Start(); err != nil {
		return errors.Join(fmt.Errorf("http server start: %w", err), a.stopWorker())
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case serveErr = <-a.httpServer.Errors():
	}
	return errors.Join(serveErr, a.shutdown())
}

// shutdown stops the HTTP server first so no new jobs arrive, then the queue.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")
	var errs []error
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if err := a.stopWorker(); err != nil {
		a.l.Error("queue shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stopWorker() error {
	if a.worker == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return a.worker.Stop(ctx)
}

// Close releases sinks. Infrastructure clients are released by the injector cleanup.
func (a *App) Close() error {
	if a.publisher == nil {
		return nil
	}
	if err := a.publisher.Close(); err != nil {
		a.l.Warn("sink close error", applogger.Error(err))
		return err
	}
	return nil
}
