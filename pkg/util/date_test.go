package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeOffsetWithSpace(t *testing.T) {
	got, ok := ParseTime("2024-06-12 08:30:00-04:00")
	require.True(t, ok)
	assert.Equal(t, "2024-06-12T12:30:00Z", got.UTC().Format(time.RFC3339))
}

func TestParseTimeInLocalWallClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	got, ok := ParseTimeIn("2024-01-15 08:30:00", ny)
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T13:30:00Z", got.UTC().Format(time.RFC3339))
	assert.Equal(t, ny, got.Location())

	got, ok = ParseTimeIn("2024-01-15T13:30:00Z", ny)
	require.True(t, ok)
	assert.Equal(t, 8, got.Hour())

	_, ok = ParseTimeIn("15/01/2024", ny)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d, err := ParseDate("2024-03-10", ny)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, time.March, d.Month())

	d, err = ParseDate("", ny)
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("2024/03/10", ny)
	assert.Error(t, err)
}
