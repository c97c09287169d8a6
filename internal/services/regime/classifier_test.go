package regime

import (
	"testing"

	"VariantMap/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{Window: 200, MinPeriods: 50, Lower: 0.66, Upper: 0.33},
		{Window: 200, MinPeriods: 50, Lower: 0.5, Upper: 0.5},
		{Window: 10, MinPeriods: 50, Lower: 0.33, Upper: 0.66},
		{Window: 10, MinPeriods: 0, Lower: 0.33, Upper: 0.66},
		{Window: 10, MinPeriods: 5, Lower: 0, Upper: 0.66},
		{Window: 10, MinPeriods: 5, Lower: 0.33, Upper: 1},
	}
	for _, cfg := range bad {
		assert.Error(t, cfg.Validate(), "%+v", cfg)
	}
}

func TestHistoryIsBoundedAndImmutable(t *testing.T) {
	h := NewHistory(3)
	h1 := h.Push(1).Push(2).Push(3)
	h2 := h1.Push(4)

	assert.Equal(t, []float64{1, 2, 3}, h1.Values())
	assert.Equal(t, []float64{2, 3, 4}, h2.Values())
	assert.Equal(t, 0, h.Len())
}

func TestWarmupIsNotClassified(t *testing.T) {
	c, err := New(Config{Window: 10, MinPeriods: 3, Lower: 0.33, Upper: 0.66})
	require.NoError(t, err)

	labels, h := c.Fold(c.Empty(), []float64{5, 5, 5, 1})
	assert.False(t, labels[0].OK)
	assert.False(t, labels[1].OK)
	assert.False(t, labels[2].OK, "history of 2 prior values is below min periods")
	assert.True(t, labels[3].OK)
	assert.Equal(t, models.RegimeCompressed, labels[3].Regime)
	assert.Equal(t, 4, h.Len())
}

func TestClassifyUsesOnlyPriorValues(t *testing.T) {
	c, err := New(Config{Window: 5, MinPeriods: 5, Lower: 0.33, Upper: 0.66})
	require.NoError(t, err)

	h := c.Empty()
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h = h.Push(v)
	}
	// cut points over {1..5}: 2.32 / 3.64
	l := c.Classify(h, 100)
	assert.Equal(t, models.RegimeExpanded, l.Regime)
	assert.InDelta(t, 2.32, l.Lower, 1e-9)
	assert.InDelta(t, 3.64, l.Upper, 1e-9)

	assert.Equal(t, models.RegimeCompressed, c.Classify(h, 2).Regime)
	assert.Equal(t, models.RegimeNormal, c.Classify(h, 3).Regime)
	assert.Equal(t, models.RegimeNormal, c.Classify(h, l.Upper).Regime, "equal to upper is Normal")
	assert.Equal(t, models.RegimeNormal, c.Classify(h, l.Lower).Regime, "equal to lower is Normal")
	assert.Equal(t, models.RegimeCompressed, c.Classify(h, l.Lower-1e-9).Regime)
	assert.Equal(t, models.RegimeExpanded, c.Classify(h, l.Upper+1e-9).Regime)
}

func TestStepDropsOldestPastWindow(t *testing.T) {
	c, err := New(Config{Window: 3, MinPeriods: 3, Lower: 0.33, Upper: 0.66})
	require.NoError(t, err)

	labels, h := c.Fold(c.Empty(), []float64{100, 100, 100, 1, 1, 1, 1})
	assert.Equal(t, []float64{1, 1, 1}, h.Values())
	assert.Equal(t, models.RegimeCompressed, labels[3].Regime)
	// history {100,1,1}: q33 = 1, so 1 is not below the lower cut
	assert.Equal(t, models.RegimeNormal, labels[5].Regime)
}
