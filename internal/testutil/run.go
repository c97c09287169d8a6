package testutil

import (
	"time"

	"VariantMap/internal/domain/models"
)

func f64(v float64) *float64 { return &v }

// SampleRun is a small finished run with two days and two map rows,
// used by sink and API tests.
func SampleRun() *models.RunResult {
	ny := NewYork()
	d1 := time.Date(2024, 6, 3, 0, 0, 0, 0, ny)
	d2 := time.Date(2024, 6, 4, 0, 0, 0, 0, ny)

	day := func(date time.Time, f models.Factors, v models.Variant, o models.Outcome) models.TradingDay {
		return models.TradingDay{
			Date:      date,
			Asia:      models.SessionSummary{Name: models.SessionAsia, Open: 100, High: 104, Low: 98, Close: 101, Mid: 101, Range: 6},
			London:    models.SessionSummary{Name: models.SessionLondon, Open: 101, High: 106, Low: 97, Close: 103, Mid: 101.5, Range: 9},
			NY:        models.SessionSummary{Name: models.SessionNY, Open: 102, High: 107, Low: 96, Close: 100},
			AsiaRange: 6,
			Factors:   f,
			Variant:   v,
			Outcome:   o,
		}
	}

	normal := models.Factors{Regime: models.RegimeNormal, Sweep: models.SweepBoth, TransitionPos: models.PositionWithin, NYPos: models.PositionWithin}
	compressed := models.Factors{Regime: models.RegimeCompressed, Sweep: models.SweepHigh, TransitionPos: models.PositionAbove, NYPos: models.PositionAbove}

	return &models.RunResult{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 7, 1, 12, 0, 2, 0, time.UTC),
		From:       d1,
		To:         d2,
		Map: []models.ProbabilityMapEntry{
			{
				Variant: "Normal|Both|Within|Within", Regime: "Normal", Sweep: "Both", TransitionPos: "Within", NYPos: "Within",
				N: 1, FirstHighPct: 100, SweepBothPct: 100, FailPct: 100,
				MedianPenHigh: f64(1.5), Reliability: models.ReliabilityLow,
			},
			{
				Variant: "Compressed|High|Above|Above", Regime: "Compressed", Sweep: "High", TransitionPos: "Above", NYPos: "Above",
				N: 1, FirstLowPct: 100, Reliability: models.ReliabilityLow,
			},
		},
		Days: []models.TradingDay{
			day(d1, normal, "Normal|Both|Within|Within", models.Outcome{
				TargetHigh: 106, TargetLow: 97, FirstSide: models.SideHigh,
				FirstTouch: time.Date(2024, 6, 3, 8, 33, 0, 0, ny),
				Both:       true, Fail: true, MedianPenetration: f64(1.5),
			}),
			day(d2, compressed, "Compressed|High|Above|Above", models.Outcome{
				TargetHigh: 106, TargetLow: 97, FirstSide: models.SideLow,
				FirstTouch: time.Date(2024, 6, 4, 9, 1, 0, 0, ny),
			}),
		},
		Diagnostics: models.Diagnostics{CandidateDates: 2, ClassifiedDays: 2, MappedDays: 2, Variants: 2},
		Summary: models.Summary{
			RegimeCounts:    map[string]int{"Normal": 1, "Compressed": 1},
			SweepCounts:     map[string]int{"Both": 1, "High": 1},
			FirstSideCounts: map[string]int{"High": 1, "Low": 1},
			FailPct:         50,
			BothPct:         50,
			VariantCoverage: 2,
			VariantSpace:    108,
		},
	}
}
