package session

import (
	"time"

	"VariantMap/internal/domain/models"
)

// Resolve converts a wall clock time on the calendar day date+dayOffset into an
// absolute instant in loc.
//
// A wall time inside a spring-forward gap resolves to the first valid instant
// after the gap. A wall time repeated by a fall-back overlap resolves to its
// later occurrence. Both cases set Boundary.Shifted.
func Resolve(loc *time.Location, date time.Time, dayOffset int, c models.ClockTime) models.Boundary {
	y, m, d := date.Date()
	wall := time.Date(y, m, d+dayOffset, c.Hour, c.Minute, 0, 0, time.UTC)
	ref := time.Date(y, m, d+dayOffset, c.Hour, c.Minute, 0, 0, loc)

	_, offBefore := ref.Add(-12 * time.Hour).Zone()
	_, offAfter := ref.Add(12 * time.Hour).Zone()
	offsets := []int{offBefore}
	if offAfter != offBefore {
		offsets = append(offsets, offAfter)
	}

	var valid []time.Time
	for _, off := range offsets {
		u := wall.Add(-time.Duration(off) * time.Second).In(loc)
		if sameWall(u, wall) {
			valid = append(valid, u)
		}
	}

	switch len(valid) {
	case 1:
		return models.Boundary{At: valid[0]}
	case 2:
		later := valid[0]
		if valid[1].After(later) {
			later = valid[1]
		}
		return models.Boundary{At: later, Shifted: true}
	default:
		// gap: the pre-transition offset lands past the gap, inside the new zone
		u := wall.Add(-time.Duration(offBefore) * time.Second).In(loc)
		start, _ := u.ZoneBounds()
		if start.IsZero() {
			start = u
		}
		return models.Boundary{At: start, Shifted: true}
	}
}

func sameWall(t, wall time.Time) bool {
	ty, tm, td := t.Date()
	wy, wm, wd := wall.Date()
	return ty == wy && tm == wm && td == wd && t.Hour() == wall.Hour() && t.Minute() == wall.Minute()
}

// Bounds returns the absolute [start, end) instants of window w on date.
func Bounds(loc *time.Location, date time.Time, w models.SessionWindow) (models.Boundary, models.Boundary) {
	startOffset, endOffset := 0, 0
	if w.PrevDay {
		startOffset = -1
	} else if w.End.Before(w.Start) {
		endOffset = 1
	}
	return Resolve(loc, date, startOffset, w.Start), Resolve(loc, date, endOffset, w.End)
}
