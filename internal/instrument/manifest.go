package instrument

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/starhook/internal/insn"
	"github.com/dshills/starhook/internal/symbol"
)

//go:embed manifest.toml
var defaultManifest []byte

// Splice kinds accepted in a manifest.
const (
	SpliceOverwrite      = "overwrite"
	SpliceWrap           = "wrap"
	SpliceWindow         = "window"
	SpliceCancelableHead = "cancelable-head"
	SpliceCallSite       = "call-site"
)

// Manifest declares the classes, methods and anchors to patch. All targets
// and hooks are symbolic references, so a new host build usually only needs
// an updated manifest.
type Manifest struct {
	// HookOwner is prepended to hook references that name no class.
	HookOwner string      `toml:"hook_owner" yaml:"hook_owner"`
	Classes   []ClassSpec `toml:"class" yaml:"classes"`
}

// ClassSpec declares the patched methods of one class.
type ClassSpec struct {
	Name    string       `toml:"name" yaml:"name"`
	Methods []MethodSpec `toml:"method" yaml:"methods"`
}

// MethodSpec declares the splices of one method.
type MethodSpec struct {
	Target  string       `toml:"target" yaml:"target"`
	Splices []SpliceSpec `toml:"splice" yaml:"splices"`
}

// SpliceSpec declares one splice. Which fields apply depends on Kind.
type SpliceSpec struct {
	Kind   string `toml:"kind" yaml:"kind"`
	Anchor string `toml:"anchor" yaml:"anchor"`

	// Hook is used by overwrite, cancelable-head and call-site.
	Hook string `toml:"hook,omitempty" yaml:"hook,omitempty"`

	// Entry and Exit are used by wrap.
	Entry string `toml:"entry,omitempty" yaml:"entry,omitempty"`
	Exit  string `toml:"exit,omitempty" yaml:"exit,omitempty"`

	// Window, Early, Pre and Post are used by window.
	Window []string `toml:"window,omitempty" yaml:"window,omitempty"`
	Early  string   `toml:"early,omitempty" yaml:"early,omitempty"`
	Pre    string   `toml:"pre,omitempty" yaml:"pre,omitempty"`
	Post   string   `toml:"post,omitempty" yaml:"post,omitempty"`

	// This and Params are used by cancelable-head.
	This   bool  `toml:"this,omitempty" yaml:"this,omitempty"`
	Params []int `toml:"params,omitempty" yaml:"params,omitempty"`

	// Call and Sentinel are used by call-site.
	Call     string `toml:"call,omitempty" yaml:"call,omitempty"`
	Sentinel int32  `toml:"sentinel,omitempty" yaml:"sentinel,omitempty"`
}

// DefaultManifest returns the built-in manifest for the reference host.
func DefaultManifest() (*Manifest, error) {
	return ParseManifest(defaultManifest, "toml")
}

// LoadManifest reads a manifest file. The format is chosen by extension:
// .yaml and .yml are YAML, anything else is TOML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	format := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest in the given format ("toml" or "yaml").
func ParseManifest(data []byte, format string) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case "toml":
		err = toml.Unmarshal(data, &m)
	case "yaml":
		err = yaml.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidManifest, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &m, nil
}

// Plans resolves every symbolic reference of the manifest and builds the
// class plans.
func (m *Manifest) Plans() ([]ClassPlan, error) {
	plans := make([]ClassPlan, 0, len(m.Classes))
	for _, cs := range m.Classes {
		p := ClassPlan{Class: symbol.InternalName(cs.Name)}
		for _, ms := range cs.Methods {
			target, err := symbol.ParseRef(ms.Target)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, cs.Name, err)
			}
			if !target.IsMethod() || target.Owner != p.Class {
				return nil, fmt.Errorf("%w: %s is not a method of %s", ErrInvalidManifest, ms.Target, p.Class)
			}
			mp := MethodPlan{Target: target}
			for _, ss := range ms.Splices {
				s, err := m.splice(ss)
				if err != nil {
					return nil, fmt.Errorf("%w: %s [%s]: %v", ErrInvalidManifest, ms.Target, ss.Anchor, err)
				}
				mp.Splices = append(mp.Splices, s)
			}
			p.Methods = append(p.Methods, mp)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// hook parses a hook reference, defaulting its owner to HookOwner. An empty
// string yields the zero Ref.
func (m *Manifest) hook(s string) (symbol.Ref, error) {
	if s == "" {
		return symbol.Ref{}, nil
	}
	if paren := strings.IndexByte(s, '('); paren >= 0 && !strings.Contains(s[:paren], ".") {
		if m.HookOwner == "" {
			return symbol.Ref{}, fmt.Errorf("hook %q names no class and no hook_owner is set", s)
		}
		s = m.HookOwner + "." + s
	}
	ref, err := symbol.ParseRef(s)
	if err != nil {
		return symbol.Ref{}, err
	}
	if !ref.IsMethod() {
		return symbol.Ref{}, fmt.Errorf("hook %q is not a method", s)
	}
	return ref, nil
}

func (m *Manifest) hooks(names ...string) ([]symbol.Ref, error) {
	out := make([]symbol.Ref, len(names))
	for i, n := range names {
		ref, err := m.hook(n)
		if err != nil {
			return nil, err
		}
		out[i] = ref
	}
	return out, nil
}

func (m *Manifest) splice(ss SpliceSpec) (Splice, error) {
	switch ss.Kind {
	case SpliceOverwrite:
		h, err := m.hooks(ss.Hook)
		if err != nil {
			return nil, err
		}
		if h[0].IsZero() {
			return nil, fmt.Errorf("overwrite needs a hook")
		}
		return &Overwrite{Name: ss.Anchor, Hook: h[0]}, nil
	case SpliceWrap:
		h, err := m.hooks(ss.Entry, ss.Exit)
		if err != nil {
			return nil, err
		}
		if h[0].IsZero() && h[1].IsZero() {
			return nil, fmt.Errorf("wrap needs an entry or exit hook")
		}
		return &Wrap{Name: ss.Anchor, Entry: h[0], Exit: h[1]}, nil
	case SpliceWindow:
		h, err := m.hooks(ss.Early, ss.Pre, ss.Post)
		if err != nil {
			return nil, err
		}
		p, err := ParseWindow(ss.Anchor, ss.Window)
		if err != nil {
			return nil, err
		}
		return &Window{Name: ss.Anchor, Pattern: p, Early: h[0], Pre: h[1], Post: h[2]}, nil
	case SpliceCancelableHead:
		h, err := m.hooks(ss.Hook)
		if err != nil {
			return nil, err
		}
		if h[0].IsZero() {
			return nil, fmt.Errorf("cancelable-head needs a hook")
		}
		return &CancelableHead{Name: ss.Anchor, Hook: h[0], This: ss.This, Params: ss.Params}, nil
	case SpliceCallSite:
		h, err := m.hooks(ss.Hook)
		if err != nil {
			return nil, err
		}
		call, err := symbol.ParseRef(ss.Call)
		if err != nil {
			return nil, err
		}
		if h[0].IsZero() || !call.IsMethod() {
			return nil, fmt.Errorf("call-site needs a hook and a method call")
		}
		return &CallSite{Name: ss.Anchor, Call: call, Hook: h[0], Sentinel: ss.Sentinel}, nil
	}
	return nil, fmt.Errorf("unknown splice kind %q", ss.Kind)
}

// ParseWindow builds a pattern from textual steps. Each step is one of
//
//	getstatic|putstatic|getfield|putfield owner/Class.name Desc
//	invokestatic|invokevirtual|invokespecial|invokeinterface owner/Class.name(Desc)Ret
//	push N          an integer constant, in any encoding
//	branch          any jump
//	if              any conditional jump
//	<mnemonic>      any instruction with that opcode, e.g. irem
func ParseWindow(name string, steps []string) (Pattern, error) {
	if len(steps) == 0 {
		return Pattern{}, fmt.Errorf("window %q has no steps", name)
	}
	p := Pattern{Name: name}
	for _, step := range steps {
		m, err := parseStep(strings.TrimSpace(step))
		if err != nil {
			return Pattern{}, fmt.Errorf("window %q: step %q: %w", name, step, err)
		}
		p.Steps = append(p.Steps, m)
	}
	return p, nil
}

func parseStep(step string) (Matcher, error) {
	head, rest, _ := strings.Cut(step, " ")
	rest = strings.TrimSpace(rest)
	switch head {
	case "branch":
		return Branch(), nil
	case "if":
		return ConditionalBranch(), nil
	case "push":
		v, err := strconv.ParseInt(rest, 10, 32)
		if err != nil {
			return nil, err
		}
		return PushesInt(int32(v)), nil
	}
	op, ok := insn.ParseOpcode(head)
	if !ok {
		return nil, fmt.Errorf("unknown instruction %q", head)
	}
	switch {
	case insn.IsFieldAccess(op):
		ref, err := symbol.ParseRef(rest)
		if err != nil {
			return nil, err
		}
		access := FieldAccess(ref)
		return func(i insn.Insn) bool { return i.Opcode() == op && access(i) }, nil
	case op >= insn.Invokevirtual && op <= insn.Invokeinterface:
		ref, err := symbol.ParseRef(rest)
		if err != nil {
			return nil, err
		}
		return Invokes(op, ref), nil
	}
	if rest != "" {
		return nil, fmt.Errorf("%s takes no operand", head)
	}
	return Op(op), nil
}
