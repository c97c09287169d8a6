package models

import "time"

// Bar is one immutable one-minute OHLC record produced by the upstream feed.
// Time carries the exchange location so session arithmetic can use wall clock.
type Bar struct {
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Valid reports whether the OHLC relationship holds.
func (b Bar) Valid() bool {
	return b.High >= b.Low &&
		b.High >= b.Open && b.High >= b.Close &&
		b.Low <= b.Open && b.Low <= b.Close
}
