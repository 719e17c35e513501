package kalender

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kalender.yaml")
	body := `
color: "#112233"
filter: juno
supersample: 2
font_timeout: 250ms
settle_delay: 0s
device:
  user_agent: "Mozilla/5.0 (Linux; Android 14) Mobile"
  touch: true
  screen_width: 360
viewport:
  width: 390
  height: 844
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Color != "#112233" || c.Filter != "juno" || c.Supersample != 2 {
		t.Errorf("scalars not loaded: %+v", c)
	}
	if c.FontTimeout != 250*time.Millisecond || c.SettleDelay != 0 {
		t.Errorf("durations = %s, %s", c.FontTimeout, c.SettleDelay)
	}
	if c.LoadTimeout != 10*time.Second || c.Background != "#ffffff" {
		t.Errorf("defaults lost: %+v", c)
	}
	if !c.Device.Touch || c.Device.ScreenWidth != 360 || c.Viewport.Height != 844 {
		t.Errorf("nested fields not loaded: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"bad color", func(c *Config) { c.Color = "white" }, "parse color"},
		{"bad background", func(c *Config) { c.Background = "#12" }, "parse color"},
		{"supersample", func(c *Config) { c.Supersample = 0 }, "supersample"},
		{"font timeout", func(c *Config) { c.FontTimeout = 0 }, "font_timeout"},
		{"load timeout", func(c *Config) { c.LoadTimeout = -time.Second }, "load_timeout"},
		{"min bytes", func(c *Config) { c.MinExportBytes = -1 }, "min_export_bytes"},
		{"viewport", func(c *Config) { c.Viewport.Width = -5 }, "viewport"},
		{"filter", func(c *Config) { c.Filter = "polaroid" }, "unknown filter"},
		{"font", func(c *Config) { c.DefaultFont = "" }, "default_font"},
		{"font outside catalog", func(c *Config) { c.DefaultFont = "Bogus" }, "not in the catalog"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.modify(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("supersample: 99\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("LoadConfig accepted supersample 99")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("LoadConfig accepted a missing file")
	}
}
