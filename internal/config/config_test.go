package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "auto", cfg.Log.Format)
	require.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce.Duration)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.toml", `
[log]
level = "debug"

[patch]
manifest = "m.yaml"
dump = true

[extensions]
dir = "ext"
timeout = "750ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "auto", cfg.Log.Format, "unset keys should keep defaults")
	require.Equal(t, "m.yaml", cfg.Patch.Manifest)
	require.True(t, cfg.Patch.Dump)
	require.Equal(t, "patched", cfg.Patch.OutDir)
	require.Equal(t, "ext", cfg.Extensions.Dir)
	require.Equal(t, 750*time.Millisecond, cfg.Extensions.Timeout.Duration)
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err, "Load() without a file")
	require.Equal(t, "info", cfg.Log.Level)

	writeFile(t, dir, DefaultFile, "[log]\nformat = \"json\"\n")
	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoad_Env(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.toml", "[log]\nlevel = \"debug\"\n")
	t.Setenv("STARHOOK_LOG_LEVEL", "warn")
	t.Setenv("STARHOOK_OUT_DIR", "/tmp/out")
	t.Setenv("STARHOOK_WATCH_DEBOUNCE", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level, "environment should win over the file")
	require.Equal(t, "/tmp/out", cfg.Patch.OutDir)
	require.Equal(t, time.Second, cfg.Watch.Debounce.Duration)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STARHOOK_DUMP", "maybe")

	_, err := Load("")
	require.Error(t, err, "a non-boolean STARHOOK_DUMP should be rejected")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantLine bool
	}{
		{"syntax", "[log\nlevel = 1", true},
		{"unknown key", "[log]\ncolour = true\n", false},
		{"bad duration", "[watch]\ndebounce = \"soon\"\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Parse(Default(), "bad.toml", []byte(tt.data))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "Parse() error = %v, want *ParseError", err)
			require.Equal(t, "bad.toml", pe.Path)
			if tt.wantLine {
				require.NotZero(t, pe.Line, "expected a line number in %v", pe)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"level", func(c *Config) { c.Log.Level = "trace" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
		{"timeout", func(c *Config) { c.Extensions.Timeout.Duration = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrValidationFailed)
		})
	}
}

func TestParseError_Error(t *testing.T) {
	errX := errors.New("x")
	tests := []struct {
		err  *ParseError
		want string
	}{
		{&ParseError{Path: "a.toml", Line: 2, Column: 3, Err: errX}, "a.toml:2:3: x"},
		{&ParseError{Path: "a.toml", Line: 2, Err: errX}, "a.toml:2: x"},
		{&ParseError{Path: "a.toml", Err: errX}, "a.toml: x"},
	}
	for _, tt := range tests {
		require.EqualError(t, tt.err, tt.want)
	}
}
