package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultFile is the configuration file looked up when none is given.
	DefaultFile = "starhook.toml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "STARHOOK_"
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete application configuration.
type Config struct {
	Log        LogConfig       `toml:"log"`
	Patch      PatchConfig     `toml:"patch"`
	Extensions ExtensionConfig `toml:"extensions"`
	Watch      WatchConfig     `toml:"watch"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" env:"LOG_LEVEL"`

	// Format is auto, console or json. Auto picks console on a terminal.
	Format string `toml:"format" env:"LOG_FORMAT"`
}

// PatchConfig controls the patch and check commands.
type PatchConfig struct {
	// Manifest is the manifest file. Empty selects the built-in manifest.
	Manifest string `toml:"manifest" env:"MANIFEST"`

	// OutDir receives patched classes and archives.
	OutDir string `toml:"out_dir" env:"OUT_DIR"`

	// Dump also writes each patched class as a loose .class file.
	Dump bool `toml:"dump" env:"DUMP"`
}

// ExtensionConfig controls Lua extensions.
type ExtensionConfig struct {
	// Dir holds *.lua extension scripts. Empty disables extensions.
	Dir string `toml:"dir" env:"EXTENSION_DIR"`

	// Timeout bounds each script and handler run.
	Timeout Duration `toml:"timeout" env:"EXTENSION_TIMEOUT"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	// Debounce is the quiet period that ends a burst of changes.
	Debounce Duration `toml:"debounce" env:"WATCH_DEBOUNCE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Patch: PatchConfig{
			OutDir: "patched",
		},
		Extensions: ExtensionConfig{
			Timeout: Duration{2 * time.Second},
		},
		Watch: WatchConfig{
			Debounce: Duration{200 * time.Millisecond},
		},
	}
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(cfg, path, data); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over cfg. Keys missing from data keep their
// current values; unknown keys are rejected.
func Parse(cfg *Config, source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{Path: source, Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return pe
	}
	return nil
}

// ApplyEnv overrides cfg with STARHOOK_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks settings that have a fixed set of values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q (must be debug, info, warn, or error)", ErrValidationFailed, c.Log.Level)
	}
	switch c.Log.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q (must be auto, console, or json)", ErrValidationFailed, c.Log.Format)
	}
	if c.Extensions.Timeout.Duration < 0 || c.Watch.Debounce.Duration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrValidationFailed)
	}
	return nil
}
