package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	"VariantMap/internal/export"
	applogger "VariantMap/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteMapStore keeps runs in a local SQLite file. It is both a sink and
// the reader the API falls back to when the cache is cold.
type SQLiteMapStore struct {
	db   *sql.DB
	keep int
	l    *applogger.Logger
}

var (
	_ domrepo.MapSink   = (*SQLiteMapStore)(nil)
	_ domrepo.MapReader = (*SQLiteMapStore)(nil)
)

// NewSQLiteMapStore opens or creates the database at path. keep > 0 prunes
// all but the newest keep runs after each write.
func NewSQLiteMapStore(path string, keep int) (*SQLiteMapStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, p := range []string{`PRAGMA journal_mode=WAL`, `PRAGMA foreign_keys=ON`} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &SQLiteMapStore{db: db, keep: keep}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// SetLogger injects a structured logger.
func (s *SQLiteMapStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SQLiteMapStore) Name() string { return "sqlite" }

func (s *SQLiteMapStore) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS map_runs (
			run_id       TEXT PRIMARY KEY,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			from_date    TEXT NOT NULL,
			to_date      TEXT NOT NULL,
			diagnostics  TEXT NOT NULL,
			summary      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS variant_map (
			run_id          TEXT NOT NULL REFERENCES map_runs(run_id) ON DELETE CASCADE,
			variant         TEXT NOT NULL,
			asia_regime     TEXT NOT NULL,
			london_sweep    TEXT NOT NULL,
			transition_pos  TEXT NOT NULL,
			ny_pos          TEXT NOT NULL,
			n               INTEGER NOT NULL,
			first_high_pct  REAL NOT NULL,
			first_low_pct   REAL NOT NULL,
			sweep_both_pct  REAL NOT NULL,
			fail_pct        REAL NOT NULL,
			median_pen_high REAL,
			median_pen_low  REAL,
			reliability     TEXT NOT NULL,
			PRIMARY KEY (run_id, variant)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_labels (
			run_id             TEXT NOT NULL REFERENCES map_runs(run_id) ON DELETE CASCADE,
			date               TEXT NOT NULL,
			variant            TEXT NOT NULL,
			asia_regime        TEXT NOT NULL,
			london_sweep       TEXT NOT NULL,
			transition_pos     TEXT NOT NULL,
			ny_pos             TEXT NOT NULL,
			asia_range         REAL NOT NULL,
			london_high        REAL NOT NULL,
			london_low         REAL NOT NULL,
			london_mid         REAL NOT NULL,
			ny_open            REAL NOT NULL,
			first_side         TEXT NOT NULL,
			first_touch        INTEGER,
			both_flag          INTEGER NOT NULL,
			fail_flag          INTEGER NOT NULL,
			median_penetration REAL,
			PRIMARY KEY (run_id, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_map_runs_started ON map_runs(started_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteMapStore) Write(ctx context.Context, run *models.RunResult) error {
	snap := run.Snapshot()
	diag, err := json.Marshal(snap.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO map_runs (run_id, started_at, finished_at, from_date, to_date, diagnostics, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.StartedAt.UnixMilli(), snap.FinishedAt.UnixMilli(), snap.From, snap.To, string(diag), string(summary),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	mapStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO variant_map (run_id, variant, asia_regime, london_sweep, transition_pos, ny_pos, n,
		 first_high_pct, first_low_pct, sweep_both_pct, fail_pct, median_pen_high, median_pen_low, reliability)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare map insert: %w", err)
	}
	defer mapStmt.Close()
	for _, e := range export.RoundMap(snap.Map) {
		if _, err := mapStmt.ExecContext(ctx,
			snap.RunID, string(e.Variant), e.Regime, e.Sweep, e.TransitionPos, e.NYPos, e.N,
			e.FirstHighPct, e.FirstLowPct, e.SweepBothPct, e.FailPct,
			nullFloat(e.MedianPenHigh), nullFloat(e.MedianPenLow), string(e.Reliability),
		); err != nil {
			return fmt.Errorf("insert map row %s: %w", e.Variant, err)
		}
	}

	dayStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_labels (run_id, date, variant, asia_regime, london_sweep, transition_pos, ny_pos,
		 asia_range, london_high, london_low, london_mid, ny_open, first_side, first_touch,
		 both_flag, fail_flag, median_penetration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare day insert: %w", err)
	}
	defer dayStmt.Close()
	for _, d := range snap.Days {
		var touch sql.NullInt64
		if d.FirstTouch != nil {
			touch = sql.NullInt64{Int64: d.FirstTouch.UnixMilli(), Valid: true}
		}
		if _, err := dayStmt.ExecContext(ctx,
			snap.RunID, d.Date, string(d.Variant), d.Regime, d.Sweep, d.TransitionPos, d.NYPos,
			d.AsiaRange, d.LondonHigh, d.LondonLow, d.LondonMid, d.NYOpen, d.FirstSide, touch,
			boolToUint8(d.Both), boolToUint8(d.Fail), nullFloat(d.MedianPenetration),
		); err != nil {
			return fmt.Errorf("insert day %s: %w", d.Date, err)
		}
	}

	if s.keep > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM map_runs WHERE run_id NOT IN (
				SELECT run_id FROM map_runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`, s.keep,
		); err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if s.l != nil {
		s.l.Info("sqlite map stored",
			applogger.String("run_id", snap.RunID),
			applogger.Int("variants", len(snap.Map)),
			applogger.Int("days", len(snap.Days)),
		)
	}
	return nil
}

// Latest returns the newest stored run, or ErrNotFound.
func (s *SQLiteMapStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	var (
		snap              models.Snapshot
		started, finished int64
		diag, summary     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, from_date, to_date, diagnostics, summary
		 FROM map_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&snap.RunID, &started, &finished, &snap.From, &snap.To, &diag, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	snap.StartedAt = time.UnixMilli(started).UTC()
	snap.FinishedAt = time.UnixMilli(finished).UTC()
	if err := json.Unmarshal([]byte(diag), &snap.Diagnostics); err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	if err := json.Unmarshal([]byte(summary), &snap.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	if snap.Map, err = s.mapRows(ctx, snap.RunID); err != nil {
		return nil, err
	}
	if snap.Days, err = s.dayRows(ctx, snap.RunID); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SQLiteMapStore) mapRows(ctx context.Context, runID string) ([]models.ProbabilityMapEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variant, asia_regime, london_sweep, transition_pos, ny_pos, n,
		 first_high_pct, first_low_pct, sweep_both_pct, fail_pct, median_pen_high, median_pen_low, reliability
		 FROM variant_map WHERE run_id = ? ORDER BY n DESC, variant ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query map: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProbabilityMapEntry, 0, 108)
	for rows.Next() {
		var (
			e      models.ProbabilityMapEntry
			hi, lo sql.NullFloat64
		)
		if err := rows.Scan(&e.Variant, &e.Regime, &e.Sweep, &e.TransitionPos, &e.NYPos, &e.N,
			&e.FirstHighPct, &e.FirstLowPct, &e.SweepBothPct, &e.FailPct, &hi, &lo, &e.Reliability,
		); err != nil {
			return nil, fmt.Errorf("scan map row: %w", err)
		}
		e.MedianPenHigh = floatPtr(hi)
		e.MedianPenLow = floatPtr(lo)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteMapStore) dayRows(ctx context.Context, runID string) ([]models.DayRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, variant, asia_regime, london_sweep, transition_pos, ny_pos,
		 asia_range, london_high, london_low, london_mid, ny_open, first_side, first_touch,
		 both_flag, fail_flag, median_penetration
		 FROM daily_labels WHERE run_id = ? ORDER BY date ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	var out []models.DayRecord
	for rows.Next() {
		var (
			d          models.DayRecord
			touch      sql.NullInt64
			both, fail int
			pen        sql.NullFloat64
		)
		if err := rows.Scan(&d.Date, &d.Variant, &d.Regime, &d.Sweep, &d.TransitionPos, &d.NYPos,
			&d.AsiaRange, &d.LondonHigh, &d.LondonLow, &d.LondonMid, &d.NYOpen, &d.FirstSide, &touch,
			&both, &fail, &pen,
		); err != nil {
			return nil, fmt.Errorf("scan day row: %w", err)
		}
		if touch.Valid {
			t := time.UnixMilli(touch.Int64).UTC()
			d.FirstTouch = &t
		}
		d.Both = both == 1
		d.Fail = fail == 1
		d.MedianPenetration = floatPtr(pen)
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *SQLiteMapStore) Close() error {
	return s.db.Close()
}
