package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"VariantMap/internal/domain/models"
)

// DaysHeader is the column order of the per-day CSV.
var DaysHeader = []string{
	"date",
	"asia_open", "asia_high", "asia_low", "asia_close", "asia_mid", "asia_range",
	"london_open", "london_high", "london_low", "london_close", "london_mid", "london_range",
	"transition_open", "transition_high", "transition_low", "transition_close",
	"ny_open", "ny_high", "ny_low", "ny_close",
	"asia_range_q33", "asia_range_q66",
	"asia_regime", "london_sweep", "transition_vs_london_mid", "ny_open_vs_london_mid", "variant",
	"first_sweep_side", "first_touch", "fail_flag", "both_flag", "median_penetration",
}

// WriteDaysCSV writes one row per classified day. Bars are never written.
func WriteDaysCSV(w io.Writer, days []models.TradingDay) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DaysHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range days {
		if err := cw.Write(dayRecord(&days[i])); err != nil {
			return fmt.Errorf("write day %s: %w", days[i].DateString(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func dayRecord(d *models.TradingDay) []string {
	rec := make([]string, 0, len(DaysHeader))
	rec = append(rec, d.DateString())
	rec = appendLevels(rec, d.Asia, true)
	rec = appendLevels(rec, d.London, true)
	rec = appendLevels(rec, d.Transition, false)
	rec = appendLevels(rec, d.NY, false)
	rec = append(rec,
		formatFloat(d.RegimeLower),
		formatFloat(d.RegimeUpper),
		d.Factors.Regime.String(),
		d.Factors.Sweep.String(),
		d.Factors.TransitionPos.String(),
		d.Factors.NYPos.String(),
		string(d.Variant),
	)
	o := d.Outcome
	touch := ""
	if !o.FirstTouch.IsZero() {
		touch = o.FirstTouch.Format(time.RFC3339)
	}
	rec = append(rec,
		o.FirstSide.String(),
		touch,
		flag(o.Fail),
		flag(o.Both),
		formatFloatPtr(o.MedianPenetration),
	)
	return rec
}

func appendLevels(rec []string, s models.SessionSummary, withMid bool) []string {
	rec = append(rec, formatFloat(s.Open), formatFloat(s.High), formatFloat(s.Low), formatFloat(s.Close))
	if withMid {
		rec = append(rec, formatFloat(s.Mid), formatFloat(s.Range))
	}
	return rec
}

func flag(b bool) string { return strconv.Itoa(btoi(b)) }

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
