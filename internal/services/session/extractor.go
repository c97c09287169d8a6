package session

import (
	"fmt"
	"sort"
	"time"

	"VariantMap/internal/domain/models"
	applogger "VariantMap/pkg/logger"
)

// Windows holds the four session definitions of a trading day.
type Windows struct {
	Asia       models.SessionWindow
	London     models.SessionWindow
	Transition models.SessionWindow
	NY         models.SessionWindow
}

// DefaultWindows returns the gapless America/New_York layout:
// Asia 20:00(prev)-00:00, London 00:00-05:00, Transition 05:00-08:30, NY 08:30-11:00.
func DefaultWindows() Windows {
	return Windows{
		Asia:       models.SessionWindow{Name: models.SessionAsia, Start: models.ClockTime{Hour: 20}, End: models.ClockTime{}, PrevDay: true},
		London:     models.SessionWindow{Name: models.SessionLondon, Start: models.ClockTime{}, End: models.ClockTime{Hour: 5}},
		Transition: models.SessionWindow{Name: models.SessionTransition, Start: models.ClockTime{Hour: 5}, End: models.ClockTime{Hour: 8, Minute: 30}},
		NY:         models.SessionWindow{Name: models.SessionNY, Start: models.ClockTime{Hour: 8, Minute: 30}, End: models.ClockTime{Hour: 11}},
	}
}

func (w Windows) list() []models.SessionWindow {
	return []models.SessionWindow{w.Asia, w.London, w.Transition, w.NY}
}

// DayResult is the extraction outcome for one trading date.
type DayResult struct {
	Day     models.TradingDay
	Missing []models.SessionName
	Shifts  int
}

// Complete reports whether every session had at least one bar.
func (r DayResult) Complete() bool { return len(r.Missing) == 0 }

// Extractor slices a chronologically ordered bar series into session windows.
type Extractor struct {
	loc     *time.Location
	windows Windows
	bars    []models.Bar
	l       *applogger.Logger
}

// NewExtractor validates that bars are strictly increasing in time.
func NewExtractor(loc *time.Location, windows Windows, bars []models.Bar) (*Extractor, error) {
	if loc == nil {
		return nil, fmt.Errorf("location is required")
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("bars not strictly increasing at index %d (%s <= %s)",
				i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return &Extractor{loc: loc, windows: windows, bars: bars}, nil
}

// SetLogger injects a structured logger.
func (e *Extractor) SetLogger(l *applogger.Logger) { e.l = l }

// TradingDates returns the distinct local calendar dates present in the series.
func (e *Extractor) TradingDates() []time.Time {
	var out []time.Time
	lastY, lastM, lastD := 0, time.Month(0), 0
	for _, b := range e.bars {
		y, m, d := b.Time.In(e.loc).Date()
		if y == lastY && m == lastM && d == lastD {
			continue
		}
		lastY, lastM, lastD = y, m, d
		out = append(out, time.Date(y, m, d, 0, 0, 0, 0, e.loc))
	}
	return out
}

// Extract summarizes window w on date. ok is false when no bar falls in [start, end).
func (e *Extractor) Extract(date time.Time, w models.SessionWindow) (models.SessionSummary, bool) {
	start, end := Bounds(e.loc, date, w)
	s := models.SessionSummary{Name: w.Name, Start: start, End: end}

	lo := sort.Search(len(e.bars), func(i int) bool { return !e.bars[i].Time.Before(start.At) })
	hi := sort.Search(len(e.bars), func(i int) bool { return !e.bars[i].Time.Before(end.At) })
	if lo >= hi {
		return s, false
	}
	bars := e.bars[lo:hi]

	s.Bars = bars
	s.Open = bars[0].Open
	s.Close = bars[len(bars)-1].Close
	s.High = bars[0].High
	s.Low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > s.High {
			s.High = b.High
		}
		if b.Low < s.Low {
			s.Low = b.Low
		}
	}
	s.Mid = (s.High + s.Low) / 2
	s.Range = s.High - s.Low
	return s, true
}

// Day extracts all four sessions for date.
func (e *Extractor) Day(date time.Time) DayResult {
	res := DayResult{Day: models.TradingDay{Date: date}}
	slots := []*models.SessionSummary{&res.Day.Asia, &res.Day.London, &res.Day.Transition, &res.Day.NY}
	for i, w := range e.windows.list() {
		s, ok := e.Extract(date, w)
		for _, b := range []models.Boundary{s.Start, s.End} {
			if !b.Shifted {
				continue
			}
			res.Shifts++
			if e.l != nil {
				e.l.Warn("session boundary shifted across clock transition",
					applogger.String("date", date.Format("2006-01-02")),
					applogger.String("session", string(w.Name)),
					applogger.Time("resolved", b.At),
				)
			}
		}
		if !ok {
			res.Missing = append(res.Missing, w.Name)
			continue
		}
		*slots[i] = s
	}
	res.Day.AsiaRange = res.Day.Asia.Range
	return res
}
