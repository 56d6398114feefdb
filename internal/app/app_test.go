package app

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/config"
	"github.com/dshills/starhook/internal/instrument"
)

type testEmpire struct {
	stars int
}

func (e *testEmpire) UID() int             { return 7 }
func (e *testEmpire) Name() string         { return "Test Empire" }
func (e *testEmpire) StarCount() int       { return e.stars }
func (e *testEmpire) TechnologyLevel() int { return 2 }

func TestNew(t *testing.T) {
	app, err := New(nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer app.Shutdown()

	require.NotNil(t, app.Bus())
	require.NotNil(t, app.Bridge())
	require.NotNil(t, app.Manifest())
	require.Len(t, app.Hooks().Refs(), 9)
	require.Empty(t, app.Extensions())
	require.Same(t, app.Bus(), app.Bridge().Bus(), "bridge should publish on the application bus")
}

func TestNew_InitErrors(t *testing.T) {
	dir := t.TempDir()
	unknownHook := filepath.Join(dir, "unknown.toml")
	writeFile(t, unknownHook, []byte(`
hook_owner = "starhook/bridge/Hooks"

[[class]]
name = "demo/Clock"

  [[class.method]]
  target = "demo/Clock.tick()V"

    [[class.method.splice]]
    kind = "wrap"
    anchor = "clock-tick"
    entry = "nothing()V"
`))
	brokenExt := filepath.Join(dir, "ext")
	writeFile(t, filepath.Join(brokenExt, "broken.lua"), []byte(`starhook.on(`))

	tests := []struct {
		name      string
		configure func(*config.Config)
		component string
		target    error
	}{
		{"missing manifest", func(c *config.Config) { c.Patch.Manifest = filepath.Join(dir, "missing.toml") }, "manifest", nil},
		{"unknown hook", func(c *config.Config) { c.Patch.Manifest = unknownHook }, "engine", instrument.ErrMissingHook},
		{"bad log level", func(c *config.Config) { c.Log.Level = "chatty" }, "logging", nil},
		{"broken extension", func(c *config.Config) { c.Extensions.Dir = brokenExt }, "extensions", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.configure(cfg)
			app, err := New(cfg)
			if err == nil {
				app.Shutdown()
			}
			require.Error(t, err)
			var ie *InitError
			require.True(t, errors.As(err, &ie), "error = %v, want *InitError", err)
			require.Equal(t, tt.component, ie.Component)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestExtensionsReachBridge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "guard.lua"), []byte(`
		starhook.on("empire.collapse", "high", function(ev)
			if ev.empire.stars > 0 then
				ev.cancelled = true
			end
		end)
	`))
	cfg := config.Default()
	cfg.Extensions.Dir = dir
	app, err := New(cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer app.Shutdown()

	require.Len(t, app.Extensions(), 1)
	x := app.Extensions()[0]
	require.True(t, app.Bus().Registered(x), "extension should be registered on the bus")

	require.True(t, app.Bridge().EmitCollapse(&testEmpire{stars: 3}), "collapse with stars should be cancelled")
	require.False(t, app.Bridge().EmitCollapse(&testEmpire{}), "collapse without stars should go ahead")

	app.Shutdown()
	require.False(t, app.Bus().Registered(x), "Shutdown() should unregister extensions")
	app.Shutdown()
}

func TestDetachedHost(t *testing.T) {
	app, err := New(nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer app.Shutdown()

	path := filepath.Join(t.TempDir(), "galaxy.dat")
	require.ErrorIs(t, app.Bridge().Save("test", path), ErrNoHost)
}

func TestNewEngine_Fresh(t *testing.T) {
	app := clockApp(t)
	e1, err := app.NewEngine()
	require.NoError(t, err)
	e2, err := app.NewEngine()
	require.NoError(t, err)
	require.NotSame(t, e1, e2, "NewEngine() should return a new engine each time")
	require.True(t, e1.IsValidTarget(clockClass))
}
