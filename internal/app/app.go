package app

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/starhook/internal/config"
	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/extension"
	"github.com/dshills/starhook/internal/hook"
	"github.com/dshills/starhook/internal/instrument"
	"github.com/dshills/starhook/internal/logging"
)

// Option configures an App.
type Option func(*App)

// WithHost attaches the host the bridge calls back into.
func WithHost(h hook.Host) Option {
	return func(a *App) {
		a.host = h
	}
}

// WithLogOutput sets where log lines go. The default is stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) {
		a.logOut = w
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.log = &l
	}
}

// App is the central coordinator of a starhook run.
type App struct {
	config *config.Config
	host   hook.Host
	logOut io.Writer
	log    *zerolog.Logger

	bus        *event.Bus
	bridge     *hook.Bridge
	hooks      *hook.Registry
	manifest   *instrument.Manifest
	plans      []instrument.ClassPlan
	extensions []*extension.Extension

	shutdown sync.Once
}

// New creates an App from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{
		config: cfg,
		logOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.bootstrap(); err != nil {
		a.Shutdown()
		return nil, err
	}
	return a, nil
}

// bootstrap initializes components in dependency order.
func (a *App) bootstrap() error {
	// 1. Logging
	if a.log == nil {
		l, err := logging.New(a.logOut, logging.Options{
			Level:  a.config.Log.Level,
			Format: a.config.Log.Format,
		})
		if err != nil {
			return &InitError{Component: "logging", Err: err}
		}
		a.log = &l
	}

	// 2. Event bus
	a.bus = event.NewBus(event.WithLogger(logging.Component(*a.log, "event")))

	// 3. Hook bridge and registry
	if a.host == nil {
		a.host = detachedHost{log: logging.Component(*a.log, "host")}
	}
	a.bridge = hook.New(a.bus, a.host, hook.WithLogger(logging.Component(*a.log, "hook")))
	a.hooks = a.bridge.Registry()

	// 4. Manifest
	m, err := a.loadManifest()
	if err != nil {
		return &InitError{Component: "manifest", Err: err}
	}
	plans, err := m.Plans()
	if err != nil {
		return &InitError{Component: "manifest", Err: err}
	}
	a.manifest = m
	a.plans = plans
	if _, err := a.NewEngine(); err != nil {
		return &InitError{Component: "engine", Err: err}
	}

	// 5. Extensions
	if err := a.loadExtensions(); err != nil {
		return &InitError{Component: "extensions", Err: err}
	}

	a.log.Debug().
		Int("classes", len(a.plans)).
		Int("hooks", len(a.hooks.Refs())).
		Int("extensions", len(a.extensions)).
		Msg("application initialized")
	return nil
}

func (a *App) loadManifest() (*instrument.Manifest, error) {
	if a.config.Patch.Manifest == "" {
		return instrument.DefaultManifest()
	}
	return instrument.LoadManifest(a.config.Patch.Manifest)
}

func (a *App) loadExtensions() error {
	dir := a.config.Extensions.Dir
	if dir == "" {
		return nil
	}
	xs, err := extension.LoadDir(dir,
		extension.WithLogger(logging.Component(*a.log, "extension")),
		extension.WithStateOptions(extension.WithExecutionTimeout(a.config.Extensions.Timeout.Duration)),
	)
	a.extensions = xs
	if err != nil {
		return err
	}
	for _, x := range xs {
		if err := a.bus.Register(x); err != nil {
			return err
		}
		a.log.Info().Str("extension", x.Name()).Int("bindings", len(x.Bindings())).Msg("extension loaded")
	}
	return nil
}

// NewEngine creates a fresh engine for the configured manifest and checks
// that every hook it calls is implemented. Engines transform each class at
// most once, so every patch pass needs its own.
func (a *App) NewEngine() (*instrument.Engine, error) {
	e, err := instrument.NewEngine(a.plans, instrument.WithLogger(logging.Component(*a.log, "instrument")))
	if err != nil {
		return nil, err
	}
	if err := e.CheckHooks(a.hooks); err != nil {
		return nil, err
	}
	return e, nil
}

// Shutdown unregisters and closes every extension. It is safe to call more
// than once.
func (a *App) Shutdown() {
	a.shutdown.Do(func() {
		for _, x := range a.extensions {
			if a.bus != nil {
				a.bus.Unregister(x)
			}
		}
		if err := extension.CloseAll(a.extensions); err != nil && a.log != nil {
			a.log.Warn().Err(err).Msg("closing extensions")
		}
	})
}

// Config returns the configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return *a.log
}

// Bus returns the event bus.
func (a *App) Bus() *event.Bus {
	return a.bus
}

// Bridge returns the hook bridge.
func (a *App) Bridge() *hook.Bridge {
	return a.bridge
}

// Hooks returns the hook registry.
func (a *App) Hooks() *hook.Registry {
	return a.hooks
}

// Manifest returns the loaded manifest.
func (a *App) Manifest() *instrument.Manifest {
	return a.manifest
}

// Extensions returns the loaded extensions.
func (a *App) Extensions() []*extension.Extension {
	return a.extensions
}

// detachedHost stands in for the host application when starhook runs
// outside of it.
type detachedHost struct {
	log zerolog.Logger
}

func (h detachedHost) SaveState(io.Writer) error {
	return ErrNoHost
}

func (h detachedHost) SetStatus(msg string) {
	h.log.Info().Str("status", msg).Msg("host status")
}

var _ hook.Host = detachedHost{}
