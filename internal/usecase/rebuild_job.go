package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	applogger "VariantMap/pkg/logger"
	"VariantMap/pkg/queue"
)

// RebuildJobType is the queue message type for background rebuilds.
const RebuildJobType = "map.rebuild"

// RebuildRequest is the payload of a queued rebuild.
type RebuildRequest struct {
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type runFunc interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// RebuildJob runs a queued rebuild. A busy lock is returned as an error so the
// queue retries later; a partial publish is logged and not retried.
type RebuildJob struct {
	runner runFunc
	l      *applogger.Logger
}

var _ queue.Job = (*RebuildJob)(nil)

func NewRebuildJob(runner runFunc) *RebuildJob {
	return &RebuildJob{runner: runner}
}

func (j *RebuildJob) SetLogger(l *applogger.Logger) { j.l = l }

func (j *RebuildJob) Name() string { return "rebuild-map" }
func (j *RebuildJob) Type() string { return RebuildJobType }

func (j *RebuildJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[RebuildRequest](payload)
	if err != nil {
		return fmt.Errorf("rebuild payload: %w", err)
	}
	run, err := j.runner.Run(ctx)
	if run == nil {
		return err
	}
	if j.l != nil {
		fields := []applogger.Field{
			applogger.String("run_id", run.RunID),
			applogger.String("reason", req.Reason),
			applogger.Time("requested_at", req.RequestedAt),
		}
		if err != nil {
			j.l.Error("queued rebuild published partially", append(fields, applogger.Error(err))...)
		} else {
			j.l.Info("queued rebuild done", fields...)
		}
	}
	return nil
}
