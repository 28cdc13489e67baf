// Package config loads the YAML configuration of the CLI and the session facade.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of a configuration file
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Authority AuthorityConfig `yaml:"authority"`
	Output    OutputConfig    `yaml:"output"`
}

// LogConfig selects the zap logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Debug switches to the development encoder
	Debug bool `yaml:"debug"`
}

// AuthorityConfig tunes the simulated authority
type AuthorityConfig struct {
	Latency     time.Duration `yaml:"latency"`
	RejectNames []string      `yaml:"reject_names"`
	IDPrefix    string        `yaml:"id_prefix"`
}

// OutputConfig selects how models are rendered
type OutputConfig struct {
	Format string `yaml:"format"`
	// Dir switches to one file per table when set
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info"},
		Authority: AuthorityConfig{IDPrefix: "srv-"},
		Output:    OutputConfig{Format: "markdown"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every bad value
func (c Config) Validate() error {
	var errs []error
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Authority.Latency < 0 {
		errs = append(errs, fmt.Errorf("authority.latency %s must not be negative", c.Authority.Latency))
	}
	switch c.Output.Format {
	case "text", "markdown":
	default:
		errs = append(errs, fmt.Errorf("output.format %q must be text or markdown", c.Output.Format))
	}
	return errors.Join(errs...)
}
