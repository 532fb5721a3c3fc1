// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Playback PlaybackConfig          `yaml:"playback"`
	Console  ConsoleConfig           `yaml:"console"`
	Formats  map[string]FormatConfig `yaml:"formats"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Hooks    HooksConfig             `yaml:"hooks"`
	Log      LogConfig               `yaml:"log"`
}

// LogConfig represents logging configuration.
// An empty File logs to stderr; MaxSizeMB and MaxBackups control rotation of
// the file (MaxBackups 0 keeps every rotated file).
type LogConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"10" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// PlaybackConfig represents audio output and controller configuration.
type PlaybackConfig struct {
	SampleRate      int  `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs        int  `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	ResampleQuality int  `yaml:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	Loop            bool `yaml:"loop"`
	EventBuffer     int  `yaml:"event_buffer" default:"16" validate:"gte=1,lte=1024"`
}

// ConsoleConfig represents the interactive console configuration.
type ConsoleConfig struct {
	Prompt     string `yaml:"prompt" default:"> "`
	PathPrompt string `yaml:"path_prompt" default:"path: "`
	Quiet      bool   `yaml:"quiet"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// FormatConfig represents a decoder format's configuration.
type FormatConfig struct {
	Disabled bool           `yaml:"disabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// An empty path yields the defaults. Environment variables take precedence
// over file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("DECK_SAMPLE_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid DECK_SAMPLE_RATE %q", v)
		}
		c.Playback.SampleRate = n
	}
	if v := os.Getenv("DECK_BUFFER_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid DECK_BUFFER_MS %q", v)
		}
		c.Playback.BufferMs = n
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Buffer returns the speaker buffer length.
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.Playback.BufferMs) * time.Millisecond
}

// EnabledFilters returns the settings of every enabled filter by name.
func (c *Config) EnabledFilters() map[string]map[string]any {
	result := make(map[string]map[string]any)
	for name, f := range c.Filters {
		if f.Enabled {
			result[name] = f.Settings
		}
	}
	return result
}

// DisabledFormats returns the names of disabled formats, sorted.
func (c *Config) DisabledFormats() []string {
	result := make([]string, 0)
	for name, f := range c.Formats {
		if f.Disabled {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// FormatSettings returns the settings of every configured format by name.
func (c *Config) FormatSettings() map[string]map[string]any {
	result := make(map[string]map[string]any)
	for name, f := range c.Formats {
		if f.Settings != nil {
			result[name] = f.Settings
		}
	}
	return result
}
