package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	applogger "VariantMap/pkg/logger"
)

// ErrBuildInProgress is returned when another build holds the run lock.
var ErrBuildInProgress = errors.New("build already in progress")

// Builder produces a run result.
type Builder interface {
	Build(ctx context.Context) (*models.RunResult, error)
}

// Locker is a best-effort mutual exclusion across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

const (
	runLockKey = "lock:build"
	runLockTTL = 10 * time.Minute
)

// MapRunner builds a map and publishes it, one run at a time.
type MapRunner struct {
	builder   Builder
	publisher *MapPublisher
	lock      Locker
	l         *applogger.Logger
}

// NewMapRunner creates the runner. lock may be nil for single-shot runs.
func NewMapRunner(builder Builder, publisher *MapPublisher, lock Locker) *MapRunner {
	return &MapRunner{builder: builder, publisher: publisher, lock: lock}
}

// SetLogger injects a structured logger.
func (r *MapRunner) SetLogger(l *applogger.Logger) { r.l = l }

// Run builds and publishes. A publish failure is returned alongside the
// result, since the run itself succeeded.
func (r *MapRunner) Run(ctx context.Context) (*models.RunResult, error) {
	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, runLockKey, runLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire build lock: %w", err)
		}
		if !ok {
			return nil, ErrBuildInProgress
		}
		defer func() {
			if err := r.lock.Unlock(context.WithoutCancel(ctx), runLockKey); err != nil && r.l != nil {
				r.l.Warn("release build lock", applogger.Error(err))
			}
		}()
	}

	run, err := r.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build map: %w", err)
	}
	if r.publisher == nil {
		return run, nil
	}
	if err := r.publisher.Publish(ctx, run); err != nil {
		return run, fmt.Errorf("publish map: %w", err)
	}
	return run, nil
}
