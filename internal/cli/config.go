package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = "ripple.toml"

// Config is the content of a ripple.toml file.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Eval    EvalConfig    `toml:"eval"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level"`
	// Format is one of text, json, logfmt
	Format string `toml:"format"`
}

// EvalConfig holds defaults for the eval command.
type EvalConfig struct {
	// Transaction applies all --set writes in one transaction
	Transaction bool `toml:"transaction"`
}

// MetricsConfig controls the Prometheus dump after eval.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads path on top of DefaultConfig. An empty path reads
// ripple.toml from the working directory if it exists.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if _, err := os.Stat(defaultConfigFile); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		path = defaultConfigFile
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
