package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, "America/New_York", c.Sessions.Timezone)
	assert.Equal(t, Window{Start: "20:00", End: "00:00", PrevDay: true}, c.Sessions.Asia)
	assert.Equal(t, Window{Start: "08:30", End: "11:00"}, c.Sessions.NY)
	assert.Equal(t, 200, c.Regime.RollingWindow)
	assert.Equal(t, 0.66, c.Regime.UpperQuantile)
	assert.Equal(t, 30, c.Outcome.FollowMinutes)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, 50*time.Millisecond, c.Kafka.Producer.Linger)
	assert.Equal(t, "ny_probability_map.csv", c.Output.MapCSV)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
input:
  path: bars.csv
regime:
  rolling_window: 100
  min_periods: 20
pipeline:
  workers: 4
http:
  write_timeout: 1m
`))
	require.NoError(t, err)
	assert.Equal(t, 100, c.Regime.RollingWindow)
	assert.Equal(t, 0.33, c.Regime.LowerQuantile, "untouched keys keep defaults")
	assert.Equal(t, 4, c.Pipeline.Workers)
	assert.Equal(t, time.Minute, c.HTTP.WriteTimeout)
	assert.Equal(t, "America/New_York", c.Location().String())
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"quantile order", "input: {path: x}\nregime: {lower_quantile: 0.7, upper_quantile: 0.6}"},
		{"quantile range", "input: {path: x}\nregime: {upper_quantile: 1.2}"},
		{"window vs min periods", "input: {path: x}\nregime: {rolling_window: 10, min_periods: 20}"},
		{"tier order", "input: {path: x}\nreliability: {medium_n: 150, high_n: 150}"},
		{"negative tolerance", "input: {path: x}\nposition: {tolerance: -0.1}"},
		{"zero follow", "input: {path: x}\noutcome: {penetration_follow_minutes: 0}"},
		{"bad window time", "input: {path: x}\nsessions: {ny: {start: '8.30', end: '11:00'}}"},
		{"bad timezone", "input: {path: x}\nsessions: {timezone: Mars/Olympus}"},
		{"csv without path", "input: {source: csv}"},
		{"clickhouse without symbol", "input: {source: clickhouse}"},
		{"kafka without brokers", "input: {path: x}\nkafka: {enabled: true}"},
		{"date range", "input: {path: x, from: '2024-02-01', to: '2024-01-01'}"},
		{"queue without redis", "input: {path: x}\nqueue: {enabled: true}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input:\n  path: from-file.csv\n"), 0o644))

	t.Setenv("VMAP_INPUT", "from-env.csv")
	t.Setenv("VMAP_OUTPUT_DIR", "/tmp/out")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("REDIS_ADDR", "cache:6379")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.csv", c.Input.Path)
	assert.Equal(t, "/tmp/out", c.Output.Dir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "cache:6379", c.Redis.Addr)

	t.Setenv("VMAP_TIMEZONE", "Nowhere/Land")
	_, err = LoadWithEnv(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.True(t, c.SQLite.Enabled)
	assert.Equal(t, []string{"*"}, c.HTTP.AllowOrigins)
}
