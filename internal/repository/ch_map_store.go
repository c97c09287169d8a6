package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	pkgch "VariantMap/pkg/clickhouse"
	applogger "VariantMap/pkg/logger"
)

const chChunkSize = 2000

// CHMapStore appends each run's map and day labels to ClickHouse, tagged
// with the run id.
type CHMapStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

var _ domrepo.MapSink = (*CHMapStore)(nil)

func NewCHMapStore(ch *pkgch.Client) *CHMapStore {
	return &CHMapStore{db: ch.DB(), database: ch.Database()}
}

// SetLogger injects a structured logger.
func (s *CHMapStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHMapStore) Name() string { return "clickhouse" }

func (s *CHMapStore) Write(ctx context.Context, run *models.RunResult) error {
	snap := run.Snapshot()

	diag, err := json.Marshal(snap.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s.map_runs (run_id, started_at, finished_at, from_date, to_date, diagnostics, summary) VALUES (?, ?, ?, ?, ?, ?, ?)", s.database)
	if _, err := s.db.ExecContext(ctx, q,
		snap.RunID, snap.StartedAt, snap.FinishedAt, run.From, run.To, string(diag), string(summary),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	mapRows := make([][]interface{}, len(snap.Map))
	for i, e := range export.RoundMap(snap.Map) {
		mapRows[i] = mapRow(snap.RunID, e)
	}
	if err := s.insert(ctx, "variant_map",
		[]string{"run_id", "variant", "asia_regime", "london_sweep", "transition_pos", "ny_pos", "n",
			"first_high_pct", "first_low_pct", "sweep_both_pct", "fail_pct", "median_pen_high", "median_pen_low", "reliability"},
		mapRows,
	); err != nil {
		return err
	}

	dayRows := make([][]interface{}, len(run.Days))
	for i := range run.Days {
		dayRows[i] = dayLabelRow(snap.RunID, run.Days[i].Date, snap.Days[i])
	}
	if err := s.insert(ctx, "daily_labels",
		[]string{"run_id", "date", "variant", "asia_range", "london_high", "london_low",
			"first_side", "first_touch", "both_flag", "fail_flag", "median_penetration"},
		dayRows,
	); err != nil {
		return err
	}

	if s.l != nil {
		s.l.Info("clickhouse map stored",
			applogger.String("run_id", snap.RunID),
			applogger.Int("variants", len(mapRows)),
			applogger.Int("days", len(dayRows)),
		)
	}
	return nil
}

// insert writes rows as multi-row VALUES statements in fixed-size chunks.
func (s *CHMapStore) insert(ctx context.Context, table string, cols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	for start := 0; start < len(rows); start += chChunkSize {
		end := start + chChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(cols))
		for _, r := range rows[start:end] {
			values = append(values, placeholder)
			args = append(args, r...)
		}
		q := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s",
			s.database, table, strings.Join(cols, ", "), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse insert error", applogger.String("table", table), applogger.Error(err))
			}
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func mapRow(runID string, e models.ProbabilityMapEntry) []interface{} {
	return []interface{}{
		runID, string(e.Variant), e.Regime, e.Sweep, e.TransitionPos, e.NYPos, uint32(e.N),
		e.FirstHighPct, e.FirstLowPct, e.SweepBothPct, e.FailPct,
		e.MedianPenHigh, e.MedianPenLow, string(e.Reliability),
	}
}

func dayLabelRow(runID string, date time.Time, r models.DayRecord) []interface{} {
	return []interface{}{
		runID, date, string(r.Variant), export.Round(r.AsiaRange), r.LondonHigh, r.LondonLow,
		r.FirstSide, r.FirstTouch, boolToUint8(r.Both), boolToUint8(r.Fail), export.RoundPtr(r.MedianPenetration),
	}
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Close is a no-op; the client is owned by the caller.
func (s *CHMapStore) Close() error { return nil }
