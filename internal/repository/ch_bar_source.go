package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	pkgch "VariantMap/pkg/clickhouse"
	applogger "VariantMap/pkg/logger"
)

// CHBarSource reads one-minute candles for a single symbol from ClickHouse.
type CHBarSource struct {
	db     *sql.DB
	table  string
	symbol string
	loc    *time.Location
	l      *applogger.Logger
}

var _ domrepo.BarSource = (*CHBarSource)(nil)

func NewCHBarSource(ch *pkgch.Client, table, symbol string, loc *time.Location) *CHBarSource {
	return &CHBarSource{db: ch.DB(), table: table, symbol: symbol, loc: loc}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

// barQuery builds the range query; open sides of the range are omitted.
func (s *CHBarSource) barQuery(from, to time.Time) (string, []interface{}) {
	q := fmt.Sprintf(`
        SELECT bucket, open, high, low, close
        FROM %s
        WHERE symbol = ?`, s.table)
	args := []interface{}{s.symbol}
	if !from.IsZero() {
		q += " AND bucket >= ?"
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		q += " AND bucket < ?"
		args = append(args, to.UTC())
	}
	q += "\n        ORDER BY bucket ASC"
	return q, args
}

func (s *CHBarSource) Bars(ctx context.Context, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	q, args := s.barQuery(from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse bars query error",
				applogger.String("table", s.table),
				applogger.String("symbol", s.symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 1<<16)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Time = b.Time.In(s.loc)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse bars rows error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse bars read",
			applogger.String("table", s.table),
			applogger.String("symbol", s.symbol),
			applogger.Int("bars", len(out)),
			applogger.Duration("took_ms", time.Since(start)),
		)
	}
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *CHBarSource) Close() error { return nil }
