// Package fingerprint composes classified factors into a variant key.
package fingerprint

import (
	"fmt"
	"strings"

	"VariantMap/internal/domain/models"
)

const sep = "|"

// Build joins the factor labels as regime|sweep|transition|ny.
func Build(f models.Factors) models.Variant {
	return models.Variant(strings.Join([]string{
		f.Regime.String(),
		f.Sweep.String(),
		f.TransitionPos.String(),
		f.NYPos.String(),
	}, sep))
}

// Parse is the inverse of Build.
func Parse(v models.Variant) (models.Factors, error) {
	parts := strings.Split(string(v), sep)
	if len(parts) != 4 {
		return models.Factors{}, fmt.Errorf("variant %q: want 4 parts, got %d", v, len(parts))
	}
	var (
		f   models.Factors
		err error
	)
	if f.Regime, err = models.ParseRegime(parts[0]); err != nil {
		return models.Factors{}, fmt.Errorf("variant %q: %w", v, err)
	}
	if f.Sweep, err = models.ParseSweep(parts[1]); err != nil {
		return models.Factors{}, fmt.Errorf("variant %q: %w", v, err)
	}
	if f.TransitionPos, err = models.ParsePosition(parts[2]); err != nil {
		return models.Factors{}, fmt.Errorf("variant %q: %w", v, err)
	}
	if f.NYPos, err = models.ParsePosition(parts[3]); err != nil {
		return models.Factors{}, fmt.Errorf("variant %q: %w", v, err)
	}
	return f, nil
}

// All enumerates the closed key space in declaration order.
func All() []models.Variant {
	out := make([]models.Variant, 0, Space())
	for _, r := range models.Regimes() {
		for _, s := range models.Sweeps() {
			for _, tp := range models.Positions() {
				for _, np := range models.Positions() {
					out = append(out, Build(models.Factors{Regime: r, Sweep: s, TransitionPos: tp, NYPos: np}))
				}
			}
		}
	}
	return out
}

// Space is the number of distinct variant keys.
func Space() int {
	return len(models.Regimes()) * len(models.Sweeps()) * len(models.Positions()) * len(models.Positions())
}
