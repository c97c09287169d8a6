package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	"VariantMap/internal/services/fingerprint"
)

// MapQuery serves read-only views of the latest stored run.
type MapQuery struct {
	reader domrepo.MapReader
}

func NewMapQuery(reader domrepo.MapReader) *MapQuery {
	return &MapQuery{reader: reader}
}

type MapParams struct {
	MinN        int
	Reliability models.Reliability
	Limit       int
}

type MapView struct {
	RunID string                       `json:"run_id"`
	From  string                       `json:"from"`
	To    string                       `json:"to"`
	Count int                          `json:"count"`
	Rows  []models.ProbabilityMapEntry `json:"rows"`
}

// Map filters the latest map. Row order is preserved.
func (q *MapQuery) Map(ctx context.Context, p MapParams) (*MapView, error) {
	snap, err := q.reader.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if p.Limit <= 0 || p.Limit > fingerprint.Space() {
		p.Limit = fingerprint.Space()
	}
	rows := make([]models.ProbabilityMapEntry, 0, len(snap.Map))
	for _, e := range snap.Map {
		if e.N < p.MinN {
			continue
		}
		if p.Reliability != "" && e.Reliability != p.Reliability {
			continue
		}
		rows = append(rows, e)
		if len(rows) == p.Limit {
			break
		}
	}
	rows = export.RoundMap(rows)
	return &MapView{RunID: snap.RunID, From: snap.From, To: snap.To, Count: len(rows), Rows: rows}, nil
}

// BadVariantError reports a key that is not in the variant space.
type BadVariantError struct{ Err error }

func (e *BadVariantError) Error() string { return fmt.Sprintf("bad variant: %v", e.Err) }
func (e *BadVariantError) Unwrap() error { return e.Err }

// Variant returns one map row. Unknown keys yield BadVariantError; valid
// keys never observed yield ErrNotFound.
func (q *MapQuery) Variant(ctx context.Context, v models.Variant) (*models.ProbabilityMapEntry, error) {
	if _, err := fingerprint.Parse(v); err != nil {
		return nil, &BadVariantError{Err: err}
	}
	snap, err := q.reader.Latest(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := snap.Entry(v)
	if !ok {
		return nil, fmt.Errorf("variant %s: %w", v, domrepo.ErrNotFound)
	}
	e = export.RoundEntry(e)
	return &e, nil
}

// ErrInvalidRange is returned when a day filter ends before it starts.
var ErrInvalidRange = errors.New("from must be <= to")

type DaysParams struct {
	From    string // YYYY-MM-DD, inclusive
	To      string // YYYY-MM-DD, inclusive
	Variant models.Variant
	Limit   int
}

type DaysView struct {
	RunID string             `json:"run_id"`
	Count int                `json:"count"`
	Days  []models.DayRecord `json:"days"`
}

// Days lists per-day records of the latest run, oldest first.
func (q *MapQuery) Days(ctx context.Context, p DaysParams) (*DaysView, error) {
	if p.From != "" && p.To != "" && p.From > p.To {
		return nil, ErrInvalidRange
	}
	snap, err := q.reader.Latest(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.DayRecord, 0)
	for _, d := range snap.Days {
		if p.From != "" && d.Date < p.From {
			continue
		}
		if p.To != "" && d.Date > p.To {
			continue
		}
		if p.Variant != "" && d.Variant != p.Variant {
			continue
		}
		d.AsiaRange = export.Round(d.AsiaRange)
		d.MedianPenetration = export.RoundPtr(d.MedianPenetration)
		out = append(out, d)
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	return &DaysView{RunID: snap.RunID, Count: len(out), Days: out}, nil
}

type DiagnosticsView struct {
	RunID       string             `json:"run_id"`
	StartedAt   string             `json:"started_at"`
	FinishedAt  string             `json:"finished_at"`
	From        string             `json:"from"`
	To          string             `json:"to"`
	Diagnostics models.Diagnostics `json:"diagnostics"`
	Summary     models.Summary     `json:"summary"`
}

// Diagnostics returns run counters and the overall summary.
func (q *MapQuery) Diagnostics(ctx context.Context) (*DiagnosticsView, error) {
	snap, err := q.reader.Latest(ctx)
	if err != nil {
		return nil, err
	}
	s := snap.Summary
	s.FailPct = export.Round(s.FailPct)
	s.BothPct = export.Round(s.BothPct)
	s.MedianPenetration = export.RoundPtr(s.MedianPenetration)
	return &DiagnosticsView{
		RunID:       snap.RunID,
		StartedAt:   snap.StartedAt.Format(time.RFC3339),
		FinishedAt:  snap.FinishedAt.Format(time.RFC3339),
		From:        snap.From,
		To:          snap.To,
		Diagnostics: snap.Diagnostics,
		Summary:     s,
	}, nil
}

type VariantCount struct {
	Variant     models.Variant     `json:"variant"`
	N           int                `json:"n"`
	Reliability models.Reliability `json:"reliability,omitempty"`
}

// Variants lists the full variant space in canonical order with the
// observed count from the latest run, zero when unseen or when no run exists.
func (q *MapQuery) Variants(ctx context.Context) ([]VariantCount, error) {
	seen := map[models.Variant]models.ProbabilityMapEntry{}
	snap, err := q.reader.Latest(ctx)
	switch {
	case err == nil:
		for _, e := range snap.Map {
			seen[e.Variant] = e
		}
	case !isNotFound(err):
		return nil, err
	}
	all := fingerprint.All()
	out := make([]VariantCount, len(all))
	for i, v := range all {
		out[i] = VariantCount{Variant: v}
		if e, ok := seen[v]; ok {
			out[i].N = e.N
			out[i].Reliability = e.Reliability
		}
	}
	return out, nil
}

func isNotFound(err error) bool { return errors.Is(err, domrepo.ErrNotFound) }
