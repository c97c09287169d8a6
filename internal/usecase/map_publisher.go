package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	applogger "VariantMap/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// MapPublisher fans a finished run out to every configured sink. Sinks are
// independent: one failing sink does not stop the others.
type MapPublisher struct {
	sinks   []domrepo.MapSink
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewMapPublisher(sinks []domrepo.MapSink, metrics domrepo.Metrics) *MapPublisher {
	return &MapPublisher{sinks: sinks, metrics: metrics}
}

// SetLogger injects a structured logger.
func (p *MapPublisher) SetLogger(l *applogger.Logger) { p.l = l }

// Sinks returns the sink names in publish order.
func (p *MapPublisher) Sinks() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish writes run to all sinks concurrently and joins their errors.
func (p *MapPublisher) Publish(ctx context.Context, run *models.RunResult) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	errs := make([]error, len(p.sinks))
	var g errgroup.Group
	for i, s := range p.sinks {
		i, s := i, s
		g.Go(func() error {
			start := time.Now()
			err := s.Write(ctx, run)
			if p.metrics != nil {
				p.metrics.RecordSinkWrite(s.Name(), err == nil)
				p.metrics.RecordStageDuration("sink_"+s.Name(), time.Since(start).Seconds())
			}
			if err != nil {
				errs[i] = fmt.Errorf("sink %s: %w", s.Name(), err)
				if p.l != nil {
					p.l.Error("sink write failed",
						applogger.String("sink", s.Name()),
						applogger.String("run_id", run.RunID),
						applogger.Error(err),
					)
				}
				return nil
			}
			if p.l != nil {
				p.l.Info("sink written",
					applogger.String("sink", s.Name()),
					applogger.String("run_id", run.RunID),
					applogger.Duration("took_ms", time.Since(start)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close closes underlying sinks.
func (p *MapPublisher) Close() error {
	errs := make([]error, 0, len(p.sinks))
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
