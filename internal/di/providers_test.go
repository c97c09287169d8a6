package di

import (
	"testing"
	"time"

	"VariantMap/pkg/config"
	applogger "VariantMap/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Input.From = "2024-06-03"
	cfg.Input.To = "2024-06-07"

	bc, err := builderConfig(cfg)
	require.NoError(t, err)
	loc := cfg.Location()
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, loc), bc.From)
	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, loc), bc.To)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, loc), bc.FirstDate)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, loc), bc.LastDate)
	assert.True(t, bc.Windows.Asia.PrevDay)
	assert.Equal(t, 8, bc.Windows.NY.Start.Hour)
	assert.Equal(t, 30, bc.Windows.NY.Start.Minute)
}

func TestBuilderConfigOpenRange(t *testing.T) {
	bc, err := builderConfig(config.Default())
	require.NoError(t, err)
	assert.True(t, bc.From.IsZero())
	assert.True(t, bc.LastDate.IsZero())
}

func TestBuilderConfigBadWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Sessions.London.End = "25:00"
	_, err := builderConfig(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBuilderConfigBadDate(t *testing.T) {
	cfg := config.Default()
	cfg.Input.From = "2024/06/03"
	_, err := builderConfig(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "input.from")
}

func TestProvideSinksDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Dir = t.TempDir()
	l := applogger.Nop()

	c, cleanup, err := ProvideCache(cfg, nil, l)
	require.NoError(t, err)
	defer cleanup()

	store, err := ProvideSQLiteStore(cfg, l)
	require.NoError(t, err)
	assert.Nil(t, store, "sqlite disabled by default")

	cached := ProvideCachedMap(cfg, c, store, l)
	sinks := ProvideSinks(cfg, nil, nil, store, cached, l)
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"file", "cache"}, names)

	assert.Nil(t, ProvideRebuildQueue(cfg, nil, nil, l))
}
