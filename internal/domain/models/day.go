package models

import "time"

// Outcome holds the first-touch labels of a day's target window.
type Outcome struct {
	TargetHigh float64
	TargetLow  float64
	FirstSide  Side
	FirstTouch time.Time
	HighTouch  time.Time
	LowTouch   time.Time
	Both       bool
	Fail       bool
	// MedianPenetration is nil when no bar overshot inside the follow window.
	MedianPenetration *float64
}

// TradingDay is one date anchor with its four sessions, factors and outcome.
type TradingDay struct {
	Date        time.Time
	Asia        SessionSummary
	London      SessionSummary
	Transition  SessionSummary
	NY          SessionSummary
	AsiaRange   float64
	// RegimeLower and RegimeUpper are the trailing-history cut points used for Factors.Regime.
	RegimeLower float64
	RegimeUpper float64
	Factors     Factors
	Variant     Variant
	Outcome     Outcome
}

// DateString formats the anchor date as YYYY-MM-DD.
func (d *TradingDay) DateString() string { return d.Date.Format("2006-01-02") }

// StripBars drops the intraday bar subsequences kept for labeling.
func (d *TradingDay) StripBars() {
	d.Asia.Bars = nil
	d.London.Bars = nil
	d.Transition.Bars = nil
	d.NY.Bars = nil
}
