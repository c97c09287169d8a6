package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"VariantMap/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleMap() []models.ProbabilityMapEntry {
	return []models.ProbabilityMapEntry{
		{
			Variant: "Normal|Both|Above|Within", Regime: "Normal", Sweep: "Both", TransitionPos: "Above", NYPos: "Within",
			N: 3, FirstHighPct: 200.0 / 3, FirstLowPct: 100.0 / 3, SweepBothPct: 100.0 / 3, FailPct: 0,
			MedianPenHigh: ptr(2.675), MedianPenLow: nil, Reliability: models.ReliabilityLow,
		},
		{
			Variant: "Compressed|None|Below|Below", Regime: "Compressed", Sweep: "None", TransitionPos: "Below", NYPos: "Below",
			N: 1, FirstHighPct: 0, FirstLowPct: 100, SweepBothPct: 0, FailPct: 100,
			MedianPenHigh: nil, MedianPenLow: ptr(0.125), Reliability: models.ReliabilityLow,
		},
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 66.67, Round(200.0/3))
	assert.Equal(t, 2.68, Round(2.675))
	assert.Equal(t, 0.13, Round(0.125))
	assert.Equal(t, -0.13, Round(-0.125))
	assert.Nil(t, RoundPtr(nil))
	assert.Equal(t, 1.5, *RoundPtr(ptr(1.499999)))
}

func TestMapCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMapCSV(&buf, sampleMap()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(MapHeader, ","), lines[0])
	assert.Equal(t, "Normal|Both|Above|Within,Normal,Both,Above,Within,3,66.67,33.33,33.33,0.00,2.68,,Low", lines[1])

	got, err := ReadMapCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, RoundMap(sampleMap()), got)
}

func TestMapJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMapJSON(&buf, sampleMap()))
	assert.Contains(t, buf.String(), `"median_pen_low": null`)
	assert.Contains(t, buf.String(), `"first_high_pct": 66.67`)

	got, err := ReadMapJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, RoundMap(sampleMap()), got)
}

func TestWritesAreByteIdentical(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteMapJSON(&a, sampleMap()))
	require.NoError(t, WriteMapJSON(&b, sampleMap()))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestReadMapCSVRejectsBadInput(t *testing.T) {
	_, err := ReadMapCSV(strings.NewReader("foo,bar\n"))
	assert.Error(t, err)

	bad := strings.Join(MapHeader, ",") + "\nv,a,b,c,d,notanint,1,2,3,4,,,Low\n"
	_, err = ReadMapCSV(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestWriteDaysCSV(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	touch := time.Date(2024, 6, 12, 8, 33, 0, 0, loc)
	day := models.TradingDay{
		Date:        time.Date(2024, 6, 12, 0, 0, 0, 0, loc),
		Asia:        models.SessionSummary{Open: 100, High: 102, Low: 98, Close: 101, Mid: 100, Range: 4},
		London:      models.SessionSummary{Open: 101, High: 110, Low: 90, Close: 100, Mid: 100, Range: 20},
		Transition:  models.SessionSummary{Open: 100, High: 101, Low: 99, Close: 100},
		NY:          models.SessionSummary{Open: 100, High: 111, Low: 99, Close: 105, Bars: []models.Bar{{Time: touch}}},
		RegimeLower: 3.333,
		RegimeUpper: 5,
		Factors: models.Factors{
			Regime: models.RegimeNormal, Sweep: models.SweepBoth,
			TransitionPos: models.PositionWithin, NYPos: models.PositionWithin,
		},
		Variant: "Normal|Both|Within|Within",
		Outcome: models.Outcome{FirstSide: models.SideHigh, FirstTouch: touch, MedianPenetration: ptr(1)},
	}
	noTouch := day
	noTouch.Outcome = models.Outcome{}

	var buf bytes.Buffer
	require.NoError(t, WriteDaysCSV(&buf, []models.TradingDay{day, noTouch}))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, DaysHeader, recs[0])

	row := make(map[string]string, len(DaysHeader))
	for i, h := range DaysHeader {
		row[h] = recs[1][i]
	}
	assert.Equal(t, "2024-06-12", row["date"])
	assert.Equal(t, "110.00", row["london_high"])
	assert.Equal(t, "3.33", row["asia_range_q33"])
	assert.Equal(t, "High", row["first_sweep_side"])
	assert.Equal(t, "2024-06-12T08:33:00-04:00", row["first_touch"])
	assert.Equal(t, "0", row["fail_flag"])
	assert.Equal(t, "1.00", row["median_penetration"])

	assert.Equal(t, "", recs[2][len(DaysHeader)-5], "no-touch day keeps an empty side")
	assert.Equal(t, "", recs[2][len(DaysHeader)-1])
}
