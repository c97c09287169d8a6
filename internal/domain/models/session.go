package models

import (
	"fmt"
	"time"
)

// SessionName identifies one of the four daily windows.
type SessionName string

const (
	SessionAsia       SessionName = "asia"
	SessionLondon     SessionName = "london"
	SessionTransition SessionName = "transition"
	SessionNY         SessionName = "ny"
)

// SessionNames lists sessions in chronological order within a trading day.
func SessionNames() []SessionName {
	return []SessionName{SessionAsia, SessionLondon, SessionTransition, SessionNY}
}

// ClockTime is a time of day with minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Before reports whether c is earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool {
	return c.Hour*60+c.Minute < o.Hour*60+o.Minute
}

// SessionWindow is a recurring daily boundary. PrevDay anchors the start on the
// calendar day before the trading date.
type SessionWindow struct {
	Name    SessionName
	Start   ClockTime
	End     ClockTime
	PrevDay bool
}

// Boundary is a resolved absolute window edge. Shifted is set when the wall
// clock time fell into a clock-offset transition and was moved forward.
type Boundary struct {
	At      time.Time
	Shifted bool
}

// SessionSummary aggregates the bars of one window on one trading day.
type SessionSummary struct {
	Name  SessionName
	Start Boundary
	End   Boundary
	Open  float64
	High  float64
	Low   float64
	Close float64
	Mid   float64
	Range float64
	// Bars is working state for outcome labeling and is never persisted.
	Bars []Bar
}
