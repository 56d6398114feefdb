package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/config"
	"github.com/dshills/starhook/internal/insn"
)

const clockClass = "demo/Clock"

const clockManifest = `
hook_owner = "starhook/bridge/Hooks"

[[class]]
name = "demo/Clock"

  [[class.method]]
  target = "demo/Clock.tick()V"

    [[class.method.splice]]
    kind = "wrap"
    anchor = "clock-tick"
    entry = "graphicalTickPre()V"
    exit = "graphicalTickPost()V"
`

// classBytes encodes a class with one static void method that just returns.
func classBytes(t *testing.T, name, method string) []byte {
	t.Helper()
	c := classfile.New(name, "java/lang/Object")
	code := &classfile.Code{MaxStack: 1, Insns: insn.NewList()}
	code.Insns.Append(&insn.Simple{Op: insn.Return})
	a, err := classfile.EncodeCode(c.Pool, code)
	require.NoError(t, err)
	c.Methods = append(c.Methods, &classfile.Member{
		Access:     classfile.AccPublic | classfile.AccStatic,
		Name:       method,
		Desc:       "()V",
		Attributes: []classfile.Attribute{a},
	})
	data, err := c.Bytes()
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// clockApp creates an App whose manifest patches demo/Clock.tick.
func clockApp(t *testing.T) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clock.toml")
	writeFile(t, path, []byte(clockManifest))
	cfg := config.Default()
	cfg.Patch.Manifest = path
	cfg.Watch.Debounce.Duration = 20 * time.Millisecond
	a, err := New(cfg, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

// invokes lists the methods called by name.method in the encoded class.
func invokes(t *testing.T, data []byte, method string) []string {
	t.Helper()
	cls, err := classfile.Parse(data)
	require.NoError(t, err)
	m := cls.Method(method, "()V")
	require.NotNil(t, m, "method %s not found", method)
	code, err := cls.DecodeCode(m)
	require.NoError(t, err)
	var out []string
	for _, i := range code.Insns.All() {
		if inv, ok := i.(*insn.Invoke); ok {
			out = append(out, inv.Name)
		}
	}
	return out
}
