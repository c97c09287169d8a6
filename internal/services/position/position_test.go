package position

import (
	"testing"

	"VariantMap/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestSweep(t *testing.T) {
	asia := models.SessionSummary{High: 110, Low: 100}

	tests := []struct {
		name      string
		high, low float64
		want      models.Sweep
	}{
		{"inside", 109, 101, models.SweepNone},
		{"equal levels are not a sweep", 110, 100, models.SweepNone},
		{"high only", 111, 101, models.SweepHigh},
		{"low only", 109, 99, models.SweepLow},
		{"both", 112, 98, models.SweepBoth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			london := models.SessionSummary{High: tt.high, Low: tt.low}
			assert.Equal(t, tt.want, Sweep(asia, london))
		})
	}
}

func TestClassify(t *testing.T) {
	// mid 105, range 10, band 2.5
	tests := []struct {
		open float64
		want models.Position
	}{
		{108, models.PositionAbove},
		{107.5, models.PositionWithin},
		{105, models.PositionWithin},
		{102.5, models.PositionWithin},
		{102.4, models.PositionBelow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.open, 105, 10, DefaultTolerance), "open %v", tt.open)
	}
}

func TestClassifyZeroTolerance(t *testing.T) {
	assert.Equal(t, models.PositionWithin, Classify(105, 105, 10, 0))
	assert.Equal(t, models.PositionAbove, Classify(105.01, 105, 10, 0))
}

func TestOpenUsesReferenceLevels(t *testing.T) {
	london := models.SessionSummary{High: 110, Low: 100, Mid: 105, Range: 10}
	ny := models.SessionSummary{Open: 99}
	assert.Equal(t, models.PositionBelow, Open(ny, london, DefaultTolerance))
}
