package kalender

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tstromberg/kalender/pkg/calendar"
	"github.com/tstromberg/kalender/pkg/export"
	"github.com/tstromberg/kalender/pkg/filter"
	"github.com/tstromberg/kalender/pkg/probe"
	"github.com/tstromberg/kalender/pkg/scene"
)

// Config holds configuration for kalender.
type Config struct {
	FontDir string `yaml:"font_dir"`
	// DefaultFont is the initial font and replaces any font that fails to load in time.
	DefaultFont string `yaml:"default_font"`
	// Color is the initial calendar font colour.
	Color string `yaml:"color"`
	// Background fills any export area the photo does not cover.
	Background string `yaml:"background"`
	Filter     string `yaml:"filter"`

	Supersample    int           `yaml:"supersample"`
	FontTimeout    time.Duration `yaml:"font_timeout"`
	LoadTimeout    time.Duration `yaml:"load_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	MinExportBytes int           `yaml:"min_export_bytes"`

	Device   probe.Device   `yaml:"device"`
	Viewport scene.Viewport `yaml:"viewport"`
}

// DefaultConfig returns a config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		DefaultFont:    calendar.DefaultFont,
		Color:          "#ffffff",
		Background:     "#ffffff",
		Supersample:    calendar.DefaultSupersample,
		FontTimeout:    3 * time.Second,
		LoadTimeout:    10 * time.Second,
		SettleDelay:    100 * time.Millisecond,
		MinExportBytes: export.DefaultMinBytes,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate rejects configurations the editor cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultFont == "" {
		errs = append(errs, errors.New("default_font is empty"))
	} else if _, err := calendar.NewFonts(c.FontDir, c.DefaultFont, c.FontTimeout); err != nil {
		errs = append(errs, fmt.Errorf("default_font: %w", err))
	}
	if _, err := calendar.ParseColor(c.Color); err != nil {
		errs = append(errs, err)
	}
	if _, err := calendar.ParseColor(c.Background); err != nil {
		errs = append(errs, err)
	}
	if c.Supersample < 1 || c.Supersample > 8 {
		errs = append(errs, fmt.Errorf("supersample %d out of range [1,8]", c.Supersample))
	}
	if c.FontTimeout <= 0 {
		errs = append(errs, fmt.Errorf("font_timeout must be positive, got %s", c.FontTimeout))
	}
	if c.LoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("load_timeout must be positive, got %s", c.LoadTimeout))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle_delay is negative: %s", c.SettleDelay))
	}
	if c.MinExportBytes < 0 {
		errs = append(errs, fmt.Errorf("min_export_bytes is negative: %d", c.MinExportBytes))
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		errs = append(errs, fmt.Errorf("viewport %vx%v is negative", c.Viewport.Width, c.Viewport.Height))
	}
	if c.Device.ScreenWidth < 0 {
		errs = append(errs, fmt.Errorf("screen_width is negative: %d", c.Device.ScreenWidth))
	}
	if _, ok := filter.Lookup(c.Filter); !ok {
		errs = append(errs, fmt.Errorf("unknown filter %q", c.Filter))
	}
	return errors.Join(errs...)
}
