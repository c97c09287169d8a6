package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"VariantMap/internal/domain/models"
	domrepo "VariantMap/internal/domain/repository"
	applogger "VariantMap/pkg/logger"
	"VariantMap/pkg/util"
)

var timeColumns = []string{"time", "timestamp", "datetime", "date", "ts"}

// CSVBarSource reads one-minute bars from a delimited file with a header
// row naming a timestamp column and open, high, low, close.
// Zone-less timestamps are read as wall clock in the configured location.
type CSVBarSource struct {
	path string
	loc  *time.Location
	l    *applogger.Logger
}

var _ domrepo.BarSource = (*CSVBarSource)(nil)

func NewCSVBarSource(path string, loc *time.Location) *CSVBarSource {
	return &CSVBarSource{path: path, loc: loc}
}

// SetLogger injects a structured logger.
func (s *CSVBarSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVBarSource) Bars(ctx context.Context, from, to time.Time) ([]models.Bar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	return s.read(ctx, f, from, to)
}

func (s *CSVBarSource) read(ctx context.Context, r io.Reader, from, to time.Time) ([]models.Bar, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := barColumns(header)
	if err != nil {
		return nil, err
	}

	out := make([]models.Bar, 0, 1<<16)
	skipped := 0
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		b, err := s.parseBar(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !from.IsZero() && b.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !b.Time.Before(to) {
			continue
		}
		if !b.Valid() {
			skipped++
			continue
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	if s.l != nil {
		s.l.Info("csv bars read",
			applogger.String("path", s.path),
			applogger.Int("bars", len(out)),
		)
		if skipped > 0 {
			s.l.Warn("csv bars skipped", applogger.Int("invalid_ohlc", skipped))
		}
	}
	return out, nil
}

type columnIndex struct{ time, open, high, low, close int }

func barColumns(header []string) (columnIndex, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	ci := columnIndex{time: -1}
	for _, name := range timeColumns {
		if i, ok := idx[name]; ok {
			ci.time = i
			break
		}
	}
	if ci.time < 0 {
		return ci, fmt.Errorf("header has no timestamp column (want one of %s)", strings.Join(timeColumns, ", "))
	}
	for _, c := range []struct {
		name string
		dst  *int
	}{{"open", &ci.open}, {"high", &ci.high}, {"low", &ci.low}, {"close", &ci.close}} {
		i, ok := idx[c.name]
		if !ok {
			return ci, fmt.Errorf("header has no %s column", c.name)
		}
		*c.dst = i
	}
	return ci, nil
}

func (s *CSVBarSource) parseBar(rec []string, ci columnIndex) (models.Bar, error) {
	var b models.Bar
	t, ok := util.ParseTimeIn(strings.TrimSpace(rec[ci.time]), s.loc)
	if !ok {
		return b, fmt.Errorf("bad timestamp %q", rec[ci.time])
	}
	b.Time = t
	for _, f := range []struct {
		i   int
		dst *float64
	}{{ci.open, &b.Open}, {ci.high, &b.High}, {ci.low, &b.Low}, {ci.close, &b.Close}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[f.i]), 64)
		if err != nil {
			return b, fmt.Errorf("bad price %q: %w", rec[f.i], err)
		}
		*f.dst = v
	}
	return b, nil
}

func (s *CSVBarSource) Close() error { return nil }
