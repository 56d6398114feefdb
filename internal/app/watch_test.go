package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	app := clockApp(t)
	in := t.TempDir()
	out := filepath.Join(in, "out")
	writeFile(t, filepath.Join(in, "Clock.class"), classBytes(t, clockClass, "tick"))

	type pass struct {
		report *Report
		err    error
	}
	passes := make(chan pass, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- app.Watch(ctx, []string{in}, PatchOptions{OutDir: out}, func(r *Report, err error) {
			passes <- pass{r, err}
		})
	}()

	next := func() pass {
		t.Helper()
		select {
		case p := <-passes:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a patch pass")
			return pass{}
		}
	}

	first := next()
	require.NoError(t, first.err, "initial pass")
	require.Equal(t, 1, first.report.Scanned)

	writeFile(t, filepath.Join(in, "Other.class"), classBytes(t, "demo/Other", "tick"))
	second := next()
	require.NoError(t, second.err, "second pass")
	require.Equal(t, 2, second.report.Scanned)
	require.Len(t, second.report.Classes, 1)
	require.True(t, second.report.Classes[0].Patched(), "second pass should patch the clock again with a fresh engine")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatch_Errors(t *testing.T) {
	app := clockApp(t)
	noop := func(*Report, error) {}
	require.ErrorIs(t, app.Watch(context.Background(), nil, PatchOptions{}, noop), ErrNoInputs)
	missing := filepath.Join(t.TempDir(), "missing")
	require.Error(t, app.Watch(context.Background(), []string{missing}, PatchOptions{}, noop))
}
