package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"VariantMap/internal/domain/models"
)

// MapHeader is the column order of the probability map CSV.
var MapHeader = []string{
	"variant", "asia_regime", "london_sweep", "transition_vs_london", "ny_open_vs_london",
	"n", "first_high_pct", "first_low_pct", "sweep_both_pct", "fail_pct",
	"median_pen_high", "median_pen_low", "reliability",
}

// RoundEntry returns a copy of e with every rate and penetration rounded.
func RoundEntry(e models.ProbabilityMapEntry) models.ProbabilityMapEntry {
	e.FirstHighPct = Round(e.FirstHighPct)
	e.FirstLowPct = Round(e.FirstLowPct)
	e.SweepBothPct = Round(e.SweepBothPct)
	e.FailPct = Round(e.FailPct)
	e.MedianPenHigh = RoundPtr(e.MedianPenHigh)
	e.MedianPenLow = RoundPtr(e.MedianPenLow)
	return e
}

// RoundMap rounds every row; the input is left untouched.
func RoundMap(rows []models.ProbabilityMapEntry) []models.ProbabilityMapEntry {
	out := make([]models.ProbabilityMapEntry, len(rows))
	for i, r := range rows {
		out[i] = RoundEntry(r)
	}
	return out
}

func WriteMapCSV(w io.Writer, rows []models.ProbabilityMapEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MapHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			string(r.Variant), r.Regime, r.Sweep, r.TransitionPos, r.NYPos,
			strconv.Itoa(r.N),
			formatFloat(r.FirstHighPct),
			formatFloat(r.FirstLowPct),
			formatFloat(r.SweepBothPct),
			formatFloat(r.FailPct),
			formatFloatPtr(r.MedianPenHigh),
			formatFloatPtr(r.MedianPenLow),
			string(r.Reliability),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.Variant, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMapJSON writes the map as an indented list of records.
func WriteMapJSON(w io.Writer, rows []models.ProbabilityMapEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(RoundMap(rows)); err != nil {
		return fmt.Errorf("encode map: %w", err)
	}
	return nil
}

// ReadMapCSV parses a file produced by WriteMapCSV.
func ReadMapCSV(r io.Reader) ([]models.ProbabilityMapEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(MapHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range MapHeader {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], h)
		}
	}

	var rows []models.ProbabilityMapEntry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e, err := parseMapRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, e)
	}
	return rows, nil
}

func parseMapRecord(rec []string) (models.ProbabilityMapEntry, error) {
	e := models.ProbabilityMapEntry{
		Variant:       models.Variant(rec[0]),
		Regime:        rec[1],
		Sweep:         rec[2],
		TransitionPos: rec[3],
		NYPos:         rec[4],
		Reliability:   models.Reliability(rec[12]),
	}
	var err error
	if e.N, err = strconv.Atoi(rec[5]); err != nil {
		return e, fmt.Errorf("n: %w", err)
	}
	pcts := []*float64{&e.FirstHighPct, &e.FirstLowPct, &e.SweepBothPct, &e.FailPct}
	for i, dst := range pcts {
		if *dst, err = strconv.ParseFloat(rec[6+i], 64); err != nil {
			return e, fmt.Errorf("%s: %w", MapHeader[6+i], err)
		}
	}
	if e.MedianPenHigh, err = parseFloatPtr(rec[10]); err != nil {
		return e, fmt.Errorf("median_pen_high: %w", err)
	}
	if e.MedianPenLow, err = parseFloatPtr(rec[11]); err != nil {
		return e, fmt.Errorf("median_pen_low: %w", err)
	}
	return e, nil
}

func ReadMapJSON(r io.Reader) ([]models.ProbabilityMapEntry, error) {
	var rows []models.ProbabilityMapEntry
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return rows, nil
}
