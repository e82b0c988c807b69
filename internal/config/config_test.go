package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-candleprep/internal/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, common.DefaultSymbol, cfg.Symbol)
	assert.Equal(t, common.DefaultTimeframe, cfg.Timeframe)
	assert.Equal(t, common.DefaultMarketType, cfg.MarketType)
	assert.Equal(t, common.DefaultBulkSize, cfg.BulkSize)
	assert.Equal(t, common.DefaultStartDate, cfg.StartDate)
	assert.Equal(t, common.DefaultHelperURL, cfg.HelperURL)
	assert.Equal(t, common.DefaultArchiveURL, cfg.ArchiveBaseURL)
	assert.Equal(t, common.ScalingIndependent, cfg.Scaling.Mode)
	assert.True(t, cfg.Interactive)
	assert.Equal(t, common.DefaultHeadRows, cfg.HeadRows)

	assert.True(t, cfg.Chart.Enabled)
	assert.Equal(t, common.DefaultChartWidth, cfg.Chart.Width)
	assert.Equal(t, common.DefaultChartHeight, cfg.Chart.Height)
	assert.Equal(t, common.DefaultTickStride, cfg.Chart.TickStride)
	assert.Equal(t, float64(common.DefaultTickRotation), cfg.Chart.TickRotation)
	assert.Empty(t, cfg.EndDate)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
symbol: BTCUSDT
timeframe: 1h
start_date: "2021-01-01"
end_date: "2021-03-01"
interactive: false
scaling:
  mode: train
chart:
  enabled: false
  tick_stride: 100
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "1h", cfg.Timeframe)
	assert.False(t, cfg.Interactive)
	assert.False(t, cfg.Chart.Enabled)
	assert.Equal(t, 100, cfg.GetTickStride())
	assert.Equal(t, common.ScalingTrain, cfg.Scaling.Mode)
	// untouched keys keep their defaults
	assert.Equal(t, common.DefaultMarketType, cfg.MarketType)
	assert.Equal(t, common.DefaultChartWidth, cfg.Chart.Width)

	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Start())
	assert.Equal(t, time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), cfg.End(time.Now()))
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"timeframe": "timeframe: 7m\n",
		"market":    "market_type: options\n",
		"scaling":   "scaling:\n  mode: zscore\n",
		"range":     "start_date: \"2022-01-01\"\nend_date: \"2021-01-01\"\n",
		"date":      "start_date: yesterday\n",
		"loglevel":  "log_level: trace\n",
		"headrows":  "head_rows: 0\n",
		"yaml":      "symbol: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingDefaultPath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig(common.DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnd_DefaultsToNow(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, now, Default().End(now))
}

func TestGetters_FallBack(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, common.DefaultHeadRows, cfg.GetHeadRows())
	assert.Equal(t, common.DefaultTickStride, cfg.GetTickStride())
}
