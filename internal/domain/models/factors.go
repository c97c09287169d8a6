package models

import "fmt"

// Regime is the Asia-range regime relative to its trailing history.
type Regime uint8

const (
	RegimeCompressed Regime = iota + 1
	RegimeNormal
	RegimeExpanded
)

var regimeNames = [...]string{
	RegimeCompressed: "Compressed",
	RegimeNormal:     "Normal",
	RegimeExpanded:   "Expanded",
}

func (r Regime) String() string {
	if !r.Valid() {
		return ""
	}
	return regimeNames[r]
}

func (r Regime) Valid() bool { return r >= RegimeCompressed && r <= RegimeExpanded }

// Regimes lists every regime in declaration order.
func Regimes() []Regime { return []Regime{RegimeCompressed, RegimeNormal, RegimeExpanded} }

func ParseRegime(s string) (Regime, error) {
	for _, r := range Regimes() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown regime %q", s)
}

// Sweep describes which side of the Asia range London traded through.
type Sweep uint8

const (
	SweepNone Sweep = iota + 1
	SweepHigh
	SweepLow
	SweepBoth
)

var sweepNames = [...]string{
	SweepNone: "None",
	SweepHigh: "High",
	SweepLow:  "Low",
	SweepBoth: "Both",
}

func (s Sweep) String() string {
	if !s.Valid() {
		return ""
	}
	return sweepNames[s]
}

func (s Sweep) Valid() bool { return s >= SweepNone && s <= SweepBoth }

func Sweeps() []Sweep { return []Sweep{SweepNone, SweepHigh, SweepLow, SweepBoth} }

func ParseSweep(s string) (Sweep, error) {
	for _, v := range Sweeps() {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown sweep %q", s)
}

// Position is an open price relative to a tolerance band around a midpoint.
type Position uint8

const (
	PositionAbove Position = iota + 1
	PositionBelow
	PositionWithin
)

var positionNames = [...]string{
	PositionAbove:  "Above",
	PositionBelow:  "Below",
	PositionWithin: "Within",
}

func (p Position) String() string {
	if !p.Valid() {
		return ""
	}
	return positionNames[p]
}

func (p Position) Valid() bool { return p >= PositionAbove && p <= PositionWithin }

func Positions() []Position { return []Position{PositionAbove, PositionBelow, PositionWithin} }

func ParsePosition(s string) (Position, error) {
	for _, v := range Positions() {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown position %q", s)
}

// Side is the first-touch outcome of the target window.
// The zero value means neither reference level was touched.
type Side uint8

const (
	SideNone Side = iota
	SideHigh
	SideLow
	// SideAmbiguous marks a dual touch on the same bar; no first side exists.
	SideAmbiguous
)

var sideNames = [...]string{
	SideNone:      "",
	SideHigh:      "High",
	SideLow:       "Low",
	SideAmbiguous: "Ambiguous",
}

func (s Side) String() string {
	if s > SideAmbiguous {
		return ""
	}
	return sideNames[s]
}

// Touched reports whether at least one level was reached.
func (s Side) Touched() bool { return s != SideNone }

func ParseSide(s string) (Side, error) {
	for i, name := range sideNames {
		if name == s {
			return Side(i), nil
		}
	}
	return SideNone, fmt.Errorf("unknown side %q", s)
}

// Factors is the classified context of one trading day.
type Factors struct {
	Regime        Regime
	Sweep         Sweep
	TransitionPos Position
	NYPos         Position
}

// Valid reports whether every factor holds a declared value.
func (f Factors) Valid() bool {
	return f.Regime.Valid() && f.Sweep.Valid() && f.TransitionPos.Valid() && f.NYPos.Valid()
}

// Variant is the canonical categorical key of a day, e.g. "Compressed|Both|Above|Within".
type Variant string
