package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go-candleprep/internal/common"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type ScalingConfig struct {
	// Mode is "independent" (each partition on its own min/max) or "train"
	// (test partition scaled with the training partition's min/max).
	Mode string `yaml:"mode" default:"independent" validate:"oneof=independent train"`
}

type ChartConfig struct {
	Enabled      bool    `yaml:"enabled" default:"true"`
	Output       string  `yaml:"output" default:"mid_price.png" validate:"required_if=Enabled true"`
	Show         bool    `yaml:"show"`
	Width        int     `yaml:"width" default:"1800" validate:"gte=200"`
	Height       int     `yaml:"height" default:"900" validate:"gte=150"`
	TickStride   int     `yaml:"tick_stride" default:"2500" validate:"gte=1"`
	TickRotation float64 `yaml:"tick_rotation" default:"60" validate:"gte=0,lte=90"`
	FontSize     float64 `yaml:"font_size" default:"18" validate:"gt=0"`
}

type Config struct {
	Symbol         string        `yaml:"symbol" default:"ATOMUSDT" validate:"required,alphanum,uppercase"`
	Timeframe      string        `yaml:"timeframe" default:"15m" validate:"required,oneof=1s 1m 3m 5m 15m 30m 1h 2h 4h 6h 8h 12h 1d 3d 1w 1mo"`
	MarketType     string        `yaml:"market_type" default:"spot" validate:"oneof=spot um cm"`
	BulkSize       string        `yaml:"bulk_size" default:"monthly" validate:"oneof=monthly daily"`
	StartDate      string        `yaml:"start_date" default:"2017-01-01" validate:"required,datetime=2006-01-02"`
	EndDate        string        `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`
	HelperURL      string        `yaml:"helper_url" default:"https://raw.githubusercontent.com/danywayGit/DownloadBinanceHistorycalData/main/GetBinanceHistoricalData.py" validate:"omitempty,url"`
	ArchiveBaseURL string        `yaml:"archive_base_url" default:"https://data.binance.vision" validate:"required,url"`
	DataDir        string        `yaml:"data_dir" default:"." validate:"required"`
	WorkDir        string        `yaml:"work_dir" default:"." validate:"required"`
	Interactive    bool          `yaml:"interactive" default:"true"`
	HeadRows       int           `yaml:"head_rows" default:"5" validate:"gte=1"`
	Scaling        ScalingConfig `yaml:"scaling"`
	Chart          ChartConfig   `yaml:"chart"`
	LogLevel       string        `yaml:"log_level" default:"info" validate:"oneof=debug info warn error"`
}

// Default returns a config holding the built-in constants.
func Default() *Config {
	config := &Config{}
	if err := defaults.Set(config); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return config
}

// LoadConfig reads a YAML file on top of the defaults. A missing file at
// common.DefaultConfigPath yields the defaults; any other missing path is an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Clean(path) == filepath.Clean(common.DefaultConfigPath) {
			return config, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// defaults first, then the file, so explicit zero values (interactive: false) survive
	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	start, end := c.Start(), c.End(time.Now())
	if !start.Before(end) {
		return fmt.Errorf("start_date %s must be before end %s", c.StartDate, end.Format(common.DateLayout))
	}
	return nil
}

// Start returns the first instant of the download range, UTC midnight of StartDate.
func (c *Config) Start() time.Time {
	t, err := time.Parse(common.DateLayout, c.StartDate)
	if err != nil {
		t, _ = time.Parse(common.DateLayout, common.DefaultStartDate)
	}
	return t.UTC()
}

// End returns the exclusive end of the download range: EndDate when set, now otherwise.
func (c *Config) End(now time.Time) time.Time {
	if c.EndDate == "" {
		return now.UTC()
	}
	t, err := time.Parse(common.DateLayout, c.EndDate)
	if err != nil {
		return now.UTC()
	}
	return t.UTC()
}

// GetHeadRows falls back to the default for configs that skipped Validate.
func (c *Config) GetHeadRows() int {
	if c.HeadRows <= 0 {
		return common.DefaultHeadRows
	}
	return c.HeadRows
}

func (c *Config) GetTickStride() int {
	if c.Chart.TickStride <= 0 {
		return common.DefaultTickStride
	}
	return c.Chart.TickStride
}
