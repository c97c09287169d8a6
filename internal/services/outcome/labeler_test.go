package outcome

import (
	"testing"
	"time"

	"VariantMap/internal/domain/models"
	"VariantMap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var london = models.SessionSummary{High: 110, Low: 100, Mid: 105, Range: 10}

func nyBars(t *testing.T) ([]models.Bar, time.Time) {
	t.Helper()
	ny := testutil.NewYork()
	open := time.Date(2024, 6, 12, 8, 30, 0, 0, ny)
	return testutil.FlatBars(open, open.Add(150*time.Minute), 105), open
}

func newLabeler(t *testing.T) *Labeler {
	t.Helper()
	lb, err := NewLabeler(DefaultFollow)
	require.NoError(t, err)
	return lb
}

func TestNewLabelerRejectsNonPositiveFollow(t *testing.T) {
	_, err := NewLabeler(0)
	assert.Error(t, err)
}

func TestHighThenLow(t *testing.T) {
	bars, open := nyBars(t)
	// 08:33 touches high with 2.0 overshoot, 08:40 touches low
	bars[3].High = 112
	bars[5].High = 111
	bars[10].Low = 99
	// 09:03 is outside [08:33, 09:03)
	bars[33].High = 150

	out := newLabeler(t).Label(bars, london)

	assert.Equal(t, models.SideHigh, out.FirstSide)
	assert.True(t, out.Both)
	assert.True(t, out.Fail)
	assert.Equal(t, open.Add(3*time.Minute).Unix(), out.FirstTouch.Unix())
	assert.Equal(t, open.Add(10*time.Minute).Unix(), out.LowTouch.Unix())
	require.NotNil(t, out.MedianPenetration)
	assert.InDelta(t, 1.5, *out.MedianPenetration, 1e-9)
}

func TestTouchAtLevelStartsFollowWindow(t *testing.T) {
	bars, _ := nyBars(t)
	bars[2].High = 110
	bars[3].High = 112
	out := newLabeler(t).Label(bars, london)
	assert.Equal(t, models.SideHigh, out.FirstSide)
	assert.False(t, out.Fail)
	require.NotNil(t, out.MedianPenetration)
	assert.InDelta(t, 2.0, *out.MedianPenetration, 1e-9)
}

func TestLowOnlyWithoutOvershoot(t *testing.T) {
	bars, _ := nyBars(t)
	bars[20].Low = 100

	out := newLabeler(t).Label(bars, london)
	assert.Equal(t, models.SideLow, out.FirstSide)
	assert.False(t, out.Both)
	assert.False(t, out.Fail)
	assert.Nil(t, out.MedianPenetration, "touch exactly at the level is not an overshoot")
	assert.True(t, out.HighTouch.IsZero())
}

func TestNoTouch(t *testing.T) {
	bars, _ := nyBars(t)
	out := newLabeler(t).Label(bars, london)
	assert.Equal(t, models.SideNone, out.FirstSide)
	assert.False(t, out.FirstSide.Touched())
	assert.False(t, out.Both)
	assert.False(t, out.Fail)
	assert.Nil(t, out.MedianPenetration)
	assert.True(t, out.FirstTouch.IsZero())
}

func TestSameBarDualTouchIsAmbiguous(t *testing.T) {
	bars, open := nyBars(t)
	bars[7].High = 111
	bars[7].Low = 99

	out := newLabeler(t).Label(bars, london)
	assert.Equal(t, models.SideAmbiguous, out.FirstSide)
	assert.True(t, out.Both)
	assert.False(t, out.Fail)
	assert.Nil(t, out.MedianPenetration)
	assert.Equal(t, open.Add(7*time.Minute).Unix(), out.FirstTouch.Unix())
}

func TestLabelDay(t *testing.T) {
	bars, _ := nyBars(t)
	bars[0].Low = 95
	day := &models.TradingDay{London: london, NY: models.SessionSummary{Bars: bars}}

	newLabeler(t).LabelDay(day)
	assert.Equal(t, models.SideLow, day.Outcome.FirstSide)
	require.NotNil(t, day.Outcome.MedianPenetration)
	assert.InDelta(t, 5.0, *day.Outcome.MedianPenetration, 1e-9)
	assert.Equal(t, 110.0, day.Outcome.TargetHigh)
}
