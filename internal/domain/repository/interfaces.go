package repository

import (
	"context"
	"errors"
	"time"

	"VariantMap/internal/domain/models"
)

// ErrNotFound is returned by readers when no run has been stored yet.
var ErrNotFound = errors.New("not found")

// BarSource provides the clean one-minute bar series.
// The range is [from, to); a zero from or to leaves that side open.
type BarSource interface {
	Bars(ctx context.Context, from, to time.Time) ([]models.Bar, error)
	Close() error
}

// MapSink receives the finished run once per build.
type MapSink interface {
	Name() string
	Write(ctx context.Context, run *models.RunResult) error
	Close() error
}

// MapReader serves the most recently stored run.
type MapReader interface {
	Latest(ctx context.Context) (*models.Snapshot, error)
}

// MapCache holds the latest run for the API.
type MapCache interface {
	MapReader
	Put(ctx context.Context, snap *models.Snapshot) error
}

type Metrics interface {
	RecordDays(stage string, n int)
	RecordVariants(n int)
	RecordStageDuration(stage string, seconds float64)
	RecordSinkWrite(sink string, ok bool)
	RecordError(kind string)
	RecordRequest(endpoint string, status int, seconds float64)
}
