// Package aggregate groups labeled days by variant into probability map rows.
package aggregate

import (
	"fmt"
	"sort"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/services/fingerprint"
	"VariantMap/internal/services/stats"
)

// Tiers holds the sample-count thresholds for reliability.
type Tiers struct {
	MediumN int
	HighN   int
}

// DefaultTiers returns the 50 / 150 sample thresholds.
func DefaultTiers() Tiers { return Tiers{MediumN: 50, HighN: 150} }

// Validate requires 1 <= MediumN < HighN.
func (t Tiers) Validate() error {
	if t.MediumN < 1 || t.MediumN >= t.HighN {
		return fmt.Errorf("reliability thresholds must satisfy 1 <= medium_n < high_n, got %d / %d", t.MediumN, t.HighN)
	}
	return nil
}

// Of returns the tier for a group of n samples.
func (t Tiers) Of(n int) models.Reliability {
	switch {
	case n < t.MediumN:
		return models.ReliabilityLow
	case n < t.HighN:
		return models.ReliabilityMedium
	default:
		return models.ReliabilityHigh
	}
}

// Aggregator groups labeled days by variant into map rows.
type Aggregator struct {
	tiers Tiers
}

// New validates tiers and returns an aggregator.
func New(tiers Tiers) (*Aggregator, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{tiers: tiers}, nil
}

type group struct {
	factors models.Factors
	n       int
	high    int
	low     int
	both    int
	fail    int
	penHigh []float64
	penLow  []float64
}

// Mappable reports whether a day contributes to the map.
func Mappable(d *models.TradingDay) bool {
	return d.Factors.Valid() && d.Outcome.FirstSide.Touched()
}

// Build groups mappable days by variant and returns rows sorted by n
// descending, then variant ascending. Groups below MediumN are kept.
func (a *Aggregator) Build(days []models.TradingDay) []models.ProbabilityMapEntry {
	groups := make(map[models.Variant]*group)
	for i := range days {
		d := &days[i]
		if !Mappable(d) {
			continue
		}
		g, ok := groups[d.Variant]
		if !ok {
			g = &group{factors: d.Factors}
			groups[d.Variant] = g
		}
		g.n++
		o := d.Outcome
		switch o.FirstSide {
		case models.SideHigh:
			g.high++
			if o.MedianPenetration != nil {
				g.penHigh = append(g.penHigh, *o.MedianPenetration)
			}
		case models.SideLow:
			g.low++
			if o.MedianPenetration != nil {
				g.penLow = append(g.penLow, *o.MedianPenetration)
			}
		}
		if o.Both {
			g.both++
		}
		if o.Fail {
			g.fail++
		}
	}

	rows := make([]models.ProbabilityMapEntry, 0, len(groups))
	for v, g := range groups {
		n := float64(g.n)
		rows = append(rows, models.ProbabilityMapEntry{
			Variant:       v,
			Regime:        g.factors.Regime.String(),
			Sweep:         g.factors.Sweep.String(),
			TransitionPos: g.factors.TransitionPos.String(),
			NYPos:         g.factors.NYPos.String(),
			N:             g.n,
			FirstHighPct:  100 * float64(g.high) / n,
			FirstLowPct:   100 * float64(g.low) / n,
			SweepBothPct:  100 * float64(g.both) / n,
			FailPct:       100 * float64(g.fail) / n,
			MedianPenHigh: stats.MedianPtr(g.penHigh),
			MedianPenLow:  stats.MedianPtr(g.penLow),
			Reliability:   a.tiers.Of(g.n),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].N != rows[j].N {
			return rows[i].N > rows[j].N
		}
		return rows[i].Variant < rows[j].Variant
	})
	return rows
}

// Summarize reports distributions over the mappable days.
func Summarize(days []models.TradingDay) models.Summary {
	s := models.Summary{
		RegimeCounts:    make(map[string]int),
		SweepCounts:     make(map[string]int),
		FirstSideCounts: make(map[string]int),
		VariantSpace:    fingerprint.Space(),
	}
	var (
		n, fail, both int
		pens          []float64
		seen          = make(map[models.Variant]struct{})
	)
	for i := range days {
		d := &days[i]
		if !Mappable(d) {
			continue
		}
		n++
		s.RegimeCounts[d.Factors.Regime.String()]++
		s.SweepCounts[d.Factors.Sweep.String()]++
		s.FirstSideCounts[d.Outcome.FirstSide.String()]++
		if d.Outcome.Fail {
			fail++
		}
		if d.Outcome.Both {
			both++
		}
		if d.Outcome.MedianPenetration != nil {
			pens = append(pens, *d.Outcome.MedianPenetration)
		}
		seen[d.Variant] = struct{}{}
	}
	if n > 0 {
		s.FailPct = 100 * float64(fail) / float64(n)
		s.BothPct = 100 * float64(both) / float64(n)
	}
	s.MedianPenetration = stats.MedianPtr(pens)
	s.VariantCoverage = len(seen)
	return s
}
