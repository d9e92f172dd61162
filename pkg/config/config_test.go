package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, GridConfig{
		DayStartHour: 8, DaySlotCount: 10,
		WeekStartHour: 9, WeekSlotCount: 8,
		SlotHeightPx: 62, Timezone: "Local",
	}, cfg.Grid)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.GridTTL)
	assert.Equal(t, "@every 1h", cfg.Exports.CleanupSchedule)
	assert.Equal(t, 52, cfg.Series.MaxOccurrences)
}

func TestLoadRejectsGridPastMidnight(t *testing.T) {
	inTempDir(t)
	t.Setenv("GRID_DAY_START_HOUR", "20")
	t.Setenv("GRID_DAY_SLOT_COUNT", "6")

	_, err := Load()
	assert.Error(t, err)
}

func TestGridLocation(t *testing.T) {
	loc, err := GridConfig{Timezone: "Asia/Jakarta"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())

	loc, err = GridConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = GridConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a, ,http://b "))
	assert.Nil(t, splitAndTrim(""))
}
