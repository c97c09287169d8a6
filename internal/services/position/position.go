// Package position classifies session levels relative to each other.
package position

import "VariantMap/internal/domain/models"

// DefaultTolerance is the half-width of the mid band as a fraction of the reference range.
const DefaultTolerance = 0.25

// Sweep reports which side of the Asia range the London session traded through.
func Sweep(asia, london models.SessionSummary) models.Sweep {
	high := london.High > asia.High
	low := london.Low < asia.Low
	switch {
	case high && low:
		return models.SweepBoth
	case high:
		return models.SweepHigh
	case low:
		return models.SweepLow
	default:
		return models.SweepNone
	}
}

// Classify places open against a band of tolerance*rng around mid.
// Values exactly on the band edge count as Within.
func Classify(open, mid, rng, tolerance float64) models.Position {
	band := tolerance * rng
	switch {
	case open > mid+band:
		return models.PositionAbove
	case open < mid-band:
		return models.PositionBelow
	default:
		return models.PositionWithin
	}
}

// Open classifies a session's open against the reference session's mid.
func Open(s, ref models.SessionSummary, tolerance float64) models.Position {
	return Classify(s.Open, ref.Mid, ref.Range, tolerance)
}
