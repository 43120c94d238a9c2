// Package config handles pagesnap configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pagesnap configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Markers MarkerConfig  `yaml:"markers"`
	Output  OutputConfig  `yaml:"output"`
	Publish PublishConfig `yaml:"publish"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Bin     string        `yaml:"bin"`
	Profile string        `yaml:"profile"`
	Stealth bool          `yaml:"stealth"`
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Timeout time.Duration `yaml:"timeout"`
	Settle  time.Duration `yaml:"settle"`
}

// MarkerConfig names the marker element ids.
type MarkerConfig struct {
	FileName string `yaml:"file_name"`
	Footer   string `yaml:"footer"`
}

// OutputConfig controls where and how snapshots are written.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"` // html | markdown
	Sanitize     bool   `yaml:"sanitize"`
	Direct       bool   `yaml:"direct"`
	Preview      bool   `yaml:"preview"`
	PreviewWidth uint   `yaml:"preview_width"`
}

// PublishConfig overrides the publisher's page templates.
type PublishConfig struct {
	Top          string `yaml:"top"`
	Bottom       string `yaml:"bottom"`
	KindleTop    string `yaml:"kindle_top"`
	KindleBottom string `yaml:"kindle_bottom"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file, then applies environment
// overrides and defaults. An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PAGESNAP_OUT"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("PAGESNAP_BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
}

func (c *Config) applyDefaults() {
	if c.Browser.Width <= 0 {
		c.Browser.Width = 1280
	}
	if c.Browser.Height <= 0 {
		c.Browser.Height = 720
	}
	if c.Browser.Timeout <= 0 {
		c.Browser.Timeout = 30 * time.Second
	}
	if c.Markers.FileName == "" {
		c.Markers.FileName = "fileName"
	}
	if c.Markers.Footer == "" {
		c.Markers.Footer = "footer"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.Format == "" {
		c.Output.Format = "html"
	}
	if c.Output.PreviewWidth == 0 {
		c.Output.PreviewWidth = 320
	}
}
