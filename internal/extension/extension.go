package extension

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/starhook/internal/event"
	"github.com/dshills/starhook/internal/event/topic"
)

// moduleName is the global through which scripts reach the host.
const moduleName = "starhook"

// Option configures an Extension.
type Option func(*options)

type options struct {
	log        zerolog.Logger
	stateOpts  []StateOption
	allowEmpty bool
}

// WithLogger sets the logger that starhook.log writes to.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithStateOptions passes options to the Lua state.
func WithStateOptions(opts ...StateOption) Option {
	return func(o *options) {
		o.stateOpts = append(o.stateOpts, opts...)
	}
}

// AllowEmpty accepts scripts that bind no handlers.
func AllowEmpty() Option {
	return func(o *options) {
		o.allowEmpty = true
	}
}

// Extension is a Lua script acting as an event listener. Its bindings are
// fixed once the script has run.
type Extension struct {
	name  string
	state *State
	log   zerolog.Logger

	mu       sync.Mutex
	loaded   bool
	bindings []event.Binding
}

var _ event.Listener = (*Extension)(nil)

// Load runs the script at path and returns the resulting extension. The
// extension is named after the file.
func Load(path string, opts ...Option) (*Extension, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return load(name, opts, func(s *State) error { return s.DoFile(path) })
}

// LoadString runs code as a script called name.
func LoadString(name, code string, opts ...Option) (*Extension, error) {
	return load(name, opts, func(s *State) error { return s.DoString(code) })
}

func load(name string, opts []Option, run func(*State) error) (*Extension, error) {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	x := &Extension{
		name:  name,
		state: NewState(o.stateOpts...),
		log:   o.log.With().Str("extension", name).Logger(),
	}
	x.install()

	if err := run(x.state); err != nil {
		x.state.Close()
		return nil, fmt.Errorf("extension %s: %w", name, err)
	}

	x.mu.Lock()
	x.loaded = true
	n := len(x.bindings)
	x.mu.Unlock()
	if n == 0 && !o.allowEmpty {
		x.state.Close()
		return nil, fmt.Errorf("extension %s: %w", name, ErrNoBindings)
	}
	x.log.Debug().Int("bindings", n).Msg("extension loaded")
	return x, nil
}

// install registers the starhook module in the script's globals.
func (x *Extension) install() {
	L := x.state.L
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"on":  x.luaOn,
		"log": x.luaLog,
	})
	L.SetGlobal(moduleName, mod)
}

// luaOn implements starhook.on(type, priority, fn).
func (x *Extension) luaOn(L *lua.LState) int {
	tp := topic.Topic(L.CheckString(1))
	prioName := L.OptString(2, event.PriorityNormal.String())
	fn := L.CheckFunction(3)

	if !tp.IsValid() {
		L.ArgError(1, fmt.Sprintf("invalid event type %q", tp))
		return 0
	}
	prio, err := event.ParsePriority(prioName)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.loaded {
		L.RaiseError("starhook.on must be called while the script loads")
		return 0
	}
	x.bindings = append(x.bindings, event.Binding{
		Type:     tp,
		Priority: prio,
		Name:     fmt.Sprintf("%s#%d", x.name, len(x.bindings)),
		Handler:  x.handler(fn),
	})
	return 0
}

// luaLog implements starhook.log(msg).
func (x *Extension) luaLog(L *lua.LState) int {
	x.log.Info().Msg(L.CheckString(1))
	return 0
}

func (x *Extension) handler(fn *lua.LFunction) event.Handler {
	return event.HandlerFunc(func(ev event.Event) error {
		return x.state.Do(func(L *lua.LState) error {
			t := eventTable(L, ev)
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, t); err != nil {
				return err
			}
			applyCancelled(t, ev)
			return nil
		})
	})
}

// Name returns the extension name.
func (x *Extension) Name() string {
	return x.name
}

// Bindings implements event.Listener.
func (x *Extension) Bindings() []event.Binding {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]event.Binding(nil), x.bindings...)
}

// Close releases the Lua state. Handlers called afterwards fail with
// ErrStateClosed.
func (x *Extension) Close() error {
	return x.state.Close()
}
