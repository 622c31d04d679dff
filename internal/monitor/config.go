// Package monitor reads the controller reports a board prints over USB
// serial and tracks the controller they describe.
package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial  SerialConfig `yaml:"serial"`
	Monitor WatchConfig  `yaml:"monitor"`
	Log     LogConfig    `yaml:"log"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	// Baud is ignored by USB CDC ports but required by the driver.
	Baud int `yaml:"baud"`
}

type WatchConfig struct {
	// StaleAfterMs is how long the board may stay silent before it is
	// reported as stale. Zero disables the check.
	StaleAfterMs int `yaml:"stale_after_ms"`
	// ChangesOnly suppresses reports identical to the previous one.
	ChangesOnly bool `yaml:"changes_only"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used for fields a file leaves out.
func Default() *Config {
	return &Config{
		Serial:  SerialConfig{Device: "/dev/ttyACM0", Baud: 115200},
		Monitor: WatchConfig{StaleAfterMs: 1000, ChangesOnly: true},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a YAML configuration over the defaults. Unknown keys are
// rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("monitor config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration correctness without changing it.
func Validate(cfg *Config) error {
	if cfg.Serial.Device == "" {
		return fmt.Errorf("serial.device must be set")
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Monitor.StaleAfterMs < 0 {
		return fmt.Errorf("monitor.stale_after_ms must not be negative, got %d", cfg.Monitor.StaleAfterMs)
	}
	if _, err := cfg.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}
