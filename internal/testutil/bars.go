// Package testutil builds synthetic bar series for package tests.
package testutil

import (
	"time"

	"VariantMap/internal/domain/models"
)

// NewYork loads America/New_York or panics; tests depend on tzdata being present.
func NewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}

// FlatBars returns one bar per minute in [from, to) with every price at px.
func FlatBars(from, to time.Time, px float64) []models.Bar {
	var out []models.Bar
	for t := from; t.Before(to); t = t.Add(time.Minute) {
		out = append(out, models.Bar{Time: t, Open: px, High: px, Low: px, Close: px})
	}
	return out
}

// Bar builds a single bar.
func Bar(t time.Time, o, h, l, c float64) models.Bar {
	return models.Bar{Time: t, Open: o, High: h, Low: l, Close: c}
}

// Session describes a flat block of bars with one wide bar that sets the range.
type Session struct {
	From, To  time.Time
	Open      float64
	High, Low float64
}

// SessionBars emits a flat series at Open whose first bar spans [Low, High].
func SessionBars(s Session) []models.Bar {
	bars := FlatBars(s.From, s.To, s.Open)
	if len(bars) == 0 {
		return bars
	}
	bars[0].High = max(s.High, s.Open)
	bars[0].Low = min(s.Low, s.Open)
	return bars
}

// Merge concatenates series that are already in chronological order.
func Merge(series ...[]models.Bar) []models.Bar {
	var out []models.Bar
	for _, s := range series {
		out = append(out, s...)
	}
	return out
}
