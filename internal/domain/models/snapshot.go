package models

import "time"

// DayRecord is the flattened, bar-free view of a classified day that sinks
// persist and the API serves.
type DayRecord struct {
	Date              string     `json:"date"`
	Variant           Variant    `json:"variant"`
	Regime            string     `json:"asia_regime"`
	Sweep             string     `json:"london_sweep"`
	TransitionPos     string     `json:"transition_vs_london_mid"`
	NYPos             string     `json:"ny_open_vs_london_mid"`
	AsiaRange         float64    `json:"asia_range"`
	LondonHigh        float64    `json:"london_high"`
	LondonLow         float64    `json:"london_low"`
	LondonMid         float64    `json:"london_mid"`
	NYOpen            float64    `json:"ny_open"`
	FirstSide         string     `json:"first_sweep_side"`
	FirstTouch        *time.Time `json:"first_touch,omitempty"`
	Both              bool       `json:"both_flag"`
	Fail              bool       `json:"fail_flag"`
	MedianPenetration *float64   `json:"median_penetration"`
}

// Record flattens d.
func (d *TradingDay) Record() DayRecord {
	r := DayRecord{
		Date:              d.DateString(),
		Variant:           d.Variant,
		Regime:            d.Factors.Regime.String(),
		Sweep:             d.Factors.Sweep.String(),
		TransitionPos:     d.Factors.TransitionPos.String(),
		NYPos:             d.Factors.NYPos.String(),
		AsiaRange:         d.AsiaRange,
		LondonHigh:        d.London.High,
		LondonLow:         d.London.Low,
		LondonMid:         d.London.Mid,
		NYOpen:            d.NY.Open,
		FirstSide:         d.Outcome.FirstSide.String(),
		Both:              d.Outcome.Both,
		Fail:              d.Outcome.Fail,
		MedianPenetration: d.Outcome.MedianPenetration,
	}
	if !d.Outcome.FirstTouch.IsZero() {
		t := d.Outcome.FirstTouch.UTC()
		r.FirstTouch = &t
	}
	return r
}

// Snapshot is the persisted form of a run: everything in RunResult except
// the working day structs, which are replaced by their records.
type Snapshot struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`
	From        string                `json:"from"`
	To          string                `json:"to"`
	Map         []ProbabilityMapEntry `json:"map"`
	Days        []DayRecord           `json:"days"`
	Diagnostics Diagnostics           `json:"diagnostics"`
	Summary     Summary               `json:"summary"`
}

// Snapshot converts r. Map rows are shared, not copied.
func (r *RunResult) Snapshot() *Snapshot {
	s := &Snapshot{
		RunID:       r.RunID,
		StartedAt:   r.StartedAt.UTC(),
		FinishedAt:  r.FinishedAt.UTC(),
		Map:         r.Map,
		Days:        make([]DayRecord, len(r.Days)),
		Diagnostics: r.Diagnostics,
		Summary:     r.Summary,
	}
	if !r.From.IsZero() {
		s.From = r.From.Format("2006-01-02")
		s.To = r.To.Format("2006-01-02")
	}
	for i := range r.Days {
		s.Days[i] = r.Days[i].Record()
	}
	return s
}

// Entry returns the map row for v.
func (s *Snapshot) Entry(v Variant) (ProbabilityMapEntry, bool) {
	for _, e := range s.Map {
		if e.Variant == v {
			return e, true
		}
	}
	return ProbabilityMapEntry{}, false
}
