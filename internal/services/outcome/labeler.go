// Package outcome labels the target window of a trading day with first-touch
// order and overshoot past the reference levels.
package outcome

import (
	"fmt"
	"time"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/services/stats"
)

// DefaultFollow is how long overshoot is tracked after the first touch.
const DefaultFollow = 30 * time.Minute

// Labeler scans target-window bars against reference levels.
type Labeler struct {
	follow time.Duration
}

func NewLabeler(follow time.Duration) (*Labeler, error) {
	if follow <= 0 {
		return nil, fmt.Errorf("penetration follow window must be positive, got %s", follow)
	}
	return &Labeler{follow: follow}, nil
}

// Label returns the outcome of bars against the reference session's high and low.
// Bars must be in time order.
func (lb *Labeler) Label(bars []models.Bar, ref models.SessionSummary) models.Outcome {
	out := models.Outcome{TargetHigh: ref.High, TargetLow: ref.Low}

	hi, lo := -1, -1
	for i, b := range bars {
		if hi < 0 && b.High >= out.TargetHigh {
			hi = i
		}
		if lo < 0 && b.Low <= out.TargetLow {
			lo = i
		}
		if hi >= 0 && lo >= 0 {
			break
		}
	}
	if hi >= 0 {
		out.HighTouch = bars[hi].Time
	}
	if lo >= 0 {
		out.LowTouch = bars[lo].Time
	}
	out.Both = hi >= 0 && lo >= 0

	first := -1
	switch {
	case hi < 0 && lo < 0:
		return out
	case lo < 0 || (hi >= 0 && hi < lo):
		out.FirstSide, first = models.SideHigh, hi
		out.Fail = lo >= 0
	case hi < 0 || lo < hi:
		out.FirstSide, first = models.SideLow, lo
		out.Fail = hi >= 0
	default:
		// both levels on one bar: no order, no fail, no penetration
		out.FirstSide = models.SideAmbiguous
		out.FirstTouch = bars[hi].Time
		return out
	}
	out.FirstTouch = bars[first].Time
	out.MedianPenetration = lb.penetration(bars[first:], out)
	return out
}

func (lb *Labeler) penetration(bars []models.Bar, out models.Outcome) *float64 {
	end := out.FirstTouch.Add(lb.follow)
	var overshoots []float64
	for _, b := range bars {
		if !b.Time.Before(end) {
			break
		}
		var d float64
		if out.FirstSide == models.SideHigh {
			d = b.High - out.TargetHigh
		} else {
			d = out.TargetLow - b.Low
		}
		if d > 0 {
			overshoots = append(overshoots, d)
		}
	}
	return stats.MedianPtr(overshoots)
}

// LabelDay fills day.Outcome from its NY bars and London levels.
func (lb *Labeler) LabelDay(day *models.TradingDay) {
	day.Outcome = lb.Label(day.NY.Bars, day.London)
}
