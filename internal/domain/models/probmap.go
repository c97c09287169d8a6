package models

import "time"

// Reliability is a coarse confidence tier derived only from sample count.
type Reliability string

const (
	ReliabilityLow    Reliability = "Low"
	ReliabilityMedium Reliability = "Medium"
	ReliabilityHigh   Reliability = "High"
)

// ProbabilityMapEntry is one row of the variant probability map.
type ProbabilityMapEntry struct {
	Variant       Variant     `json:"variant"`
	Regime        string      `json:"asia_regime"`
	Sweep         string      `json:"london_sweep"`
	TransitionPos string      `json:"transition_vs_london"`
	NYPos         string      `json:"ny_open_vs_london"`
	N             int         `json:"n"`
	FirstHighPct  float64     `json:"first_high_pct"`
	FirstLowPct   float64     `json:"first_low_pct"`
	SweepBothPct  float64     `json:"sweep_both_pct"`
	FailPct       float64     `json:"fail_pct"`
	MedianPenHigh *float64    `json:"median_pen_high"`
	MedianPenLow  *float64    `json:"median_pen_low"`
	Reliability   Reliability `json:"reliability"`
}

// Diagnostics counts what each stage removed or adjusted during a run.
type Diagnostics struct {
	CandidateDates      int `json:"candidate_dates"`
	MissingSession      int `json:"dropped_missing_session"`
	InsufficientHistory int `json:"dropped_insufficient_history"`
	NoTouch             int `json:"excluded_no_touch"`
	AmbiguousTouch      int `json:"ambiguous_touch"`
	TZShifts            int `json:"tz_shifts"`
	ClassifiedDays      int `json:"classified_days"`
	MappedDays          int `json:"mapped_days"`
	Variants            int `json:"variants"`
}

// Summary is the run-level distribution report logged after aggregation.
type Summary struct {
	RegimeCounts      map[string]int `json:"regime_counts"`
	SweepCounts       map[string]int `json:"sweep_counts"`
	FirstSideCounts   map[string]int `json:"first_side_counts"`
	FailPct           float64        `json:"fail_pct"`
	BothPct           float64        `json:"both_pct"`
	MedianPenetration *float64       `json:"median_penetration"`
	VariantCoverage   int            `json:"variant_coverage"`
	VariantSpace      int            `json:"variant_space"`
}

// RunResult is the full output of one map build.
type RunResult struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	From        time.Time             `json:"from"`
	To          time.Time             `json:"to"`
	Map         []ProbabilityMapEntry `json:"map"`
	Days        []TradingDay          `json:"-"`
	Diagnostics Diagnostics           `json:"diagnostics"`
	Summary     Summary               `json:"summary"`
}
