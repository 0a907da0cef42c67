// Package config loads knobctl/knoblink configuration from a YAML file
// with sensible defaults and flag-level overrides applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smartknob/knoblink/pkg/logging"
)

// Config is the top-level configuration.
type Config struct {
	// Port is the serial device path. Empty means discover automatically.
	Port string `yaml:"port"`

	// Baud is the serial line rate.
	Baud int `yaml:"baud"`

	// AutoReset toggles the device reset line before connecting.
	AutoReset bool `yaml:"auto_reset"`

	Engine EngineConfig   `yaml:"engine"`
	Log    logging.Config `yaml:"log"`
}

// EngineConfig tunes the protocol engine. Zero values select the engine's
// defaults.
type EngineConfig struct {
	MaxQueueSize int      `yaml:"max_queue_size"`
	RetryTimeout Duration `yaml:"retry_timeout"`
	MaxRetries   int      `yaml:"max_retries"`
	PollInterval Duration `yaml:"poll_interval"`
	BufferSize   int      `yaml:"buffer_size"`
}

// Duration parses YAML duration strings like "250ms" or "2s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Baud: 921600,
		Log:  logging.Config{Level: "info", Format: "console"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "knoblink.yaml"
	}
	return filepath.Join(home, ".config", "knoblink", "config.yaml")
}

// Load reads the YAML file at path. A missing file is not an error: the
// defaults are returned so first runs work without any setup.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("knoblink config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("knoblink config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("knoblink config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine or transport cannot work with.
func (c *Config) Validate() error {
	if c.Baud < 0 {
		return fmt.Errorf("baud must be positive, got %d", c.Baud)
	}
	if c.Engine.MaxQueueSize < 0 {
		return fmt.Errorf("engine.max_queue_size must be non-negative, got %d", c.Engine.MaxQueueSize)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be non-negative, got %d", c.Engine.MaxRetries)
	}
	if c.Engine.RetryTimeout < 0 {
		return fmt.Errorf("engine.retry_timeout must be non-negative, got %s", c.Engine.RetryTimeout.Std())
	}
	if c.Engine.PollInterval < 0 {
		return fmt.Errorf("engine.poll_interval must be non-negative, got %s", c.Engine.PollInterval.Std())
	}
	return nil
}
