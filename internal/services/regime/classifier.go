// Package regime classifies the Asia session range against its own trailing
// history without looking ahead.
package regime

import (
	"fmt"
	"sort"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/services/stats"
)

// Config controls the rolling window and cut points.
type Config struct {
	Window     int
	MinPeriods int
	Lower      float64
	Upper      float64
}

// DefaultConfig mirrors the 200-day window with a 50-day warm-up and 33/66 cuts.
func DefaultConfig() Config {
	return Config{Window: 200, MinPeriods: 50, Lower: 0.33, Upper: 0.66}
}

// Validate checks the window and quantile bounds.
func (c Config) Validate() error {
	if c.MinPeriods < 1 {
		return fmt.Errorf("min periods must be >= 1, got %d", c.MinPeriods)
	}
	if c.Window < c.MinPeriods {
		return fmt.Errorf("window %d must be >= min periods %d", c.Window, c.MinPeriods)
	}
	if !(c.Lower > 0 && c.Lower < c.Upper && c.Upper < 1) {
		return fmt.Errorf("quantiles must satisfy 0 < lower < upper < 1, got %v / %v", c.Lower, c.Upper)
	}
	return nil
}

// History is a bounded, oldest-first buffer of prior values. It is treated as
// immutable: Push returns a new History.
type History struct {
	capacity int
	values   []float64
}

// NewHistory returns an empty history holding at most capacity values.
func NewHistory(capacity int) History { return History{capacity: capacity} }

// Len is the number of buffered values.
func (h History) Len() int { return len(h.values) }

// Values returns a copy of the buffered values, oldest first.
func (h History) Values() []float64 { return append([]float64(nil), h.values...) }

// Push appends v, dropping the oldest value once capacity is exceeded.
func (h History) Push(v float64) History {
	n := len(h.values) + 1
	drop := 0
	if n > h.capacity {
		drop = n - h.capacity
	}
	next := make([]float64, 0, n-drop)
	next = append(next, h.values[drop:]...)
	next = append(next, v)
	return History{capacity: h.capacity, values: next}
}

// Label is the classification of one value.
type Label struct {
	Regime models.Regime
	// OK is false while the history is still warming up.
	OK    bool
	Lower float64
	Upper float64
}

// Classifier applies Config to a history.
type Classifier struct {
	cfg Config
}

func New(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg}, nil
}

// Empty returns a history sized for this classifier.
func (c *Classifier) Empty() History { return NewHistory(c.cfg.Window) }

// Classify labels x against h without modifying it.
func (c *Classifier) Classify(h History, x float64) Label {
	if h.Len() < c.cfg.MinPeriods {
		return Label{}
	}
	sorted := h.Values()
	sort.Float64s(sorted)
	lo := stats.QuantileSorted(sorted, c.cfg.Lower)
	hi := stats.QuantileSorted(sorted, c.cfg.Upper)

	l := Label{OK: true, Lower: lo, Upper: hi, Regime: models.RegimeNormal}
	switch {
	case x < lo:
		l.Regime = models.RegimeCompressed
	case x > hi:
		l.Regime = models.RegimeExpanded
	}
	return l
}

// Step classifies x against strictly earlier values, then records x.
func (c *Classifier) Step(h History, x float64) (Label, History) {
	return c.Classify(h, x), h.Push(x)
}

// Fold runs Step over xs in order, threading the history through.
func (c *Classifier) Fold(h History, xs []float64) ([]Label, History) {
	out := make([]Label, len(xs))
	for i, x := range xs {
		out[i], h = c.Step(h, x)
	}
	return out, h
}
