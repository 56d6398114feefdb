package app

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var wantClockCalls = []string{"graphicalTickPre", "graphicalTickPost"}

func TestPatch_ClassDirectory(t *testing.T) {
	app := clockApp(t)
	in := t.TempDir()
	out := filepath.Join(in, "out")
	writeFile(t, filepath.Join(in, "demo", "Clock.class"), classBytes(t, clockClass, "tick"))
	writeFile(t, filepath.Join(in, "demo", "Other.class"), classBytes(t, "demo/Other", "tick"))
	writeFile(t, filepath.Join(in, "README.txt"), []byte("ignored"))

	report, err := app.Patch([]string{in}, PatchOptions{OutDir: out})
	require.NoError(t, err)
	require.Equal(t, 2, report.Scanned)
	require.Len(t, report.Classes, 1)
	require.True(t, report.Classes[0].Patched())
	require.Empty(t, report.Missing)
	want := filepath.Join(out, "demo", "Clock.class")
	require.Equal(t, []string{want}, report.Outputs)
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, wantClockCalls, invokes(t, data, "tick"))

	// The output directory lives below the input and must not be patched
	// again on the next pass.
	report, err = app.Patch([]string{in}, PatchOptions{OutDir: out})
	require.NoError(t, err)
	require.Equal(t, 2, report.Scanned)
}

func buildJar(t *testing.T, path string, entries map[string][]byte, order []string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	writeFile(t, path, buf.Bytes())
}

func TestPatch_Jar(t *testing.T) {
	app := clockApp(t)
	in := filepath.Join(t.TempDir(), "game.jar")
	out := t.TempDir()
	manifest := []byte("Manifest-Version: 1.0\n")
	order := []string{"META-INF/", "META-INF/MANIFEST.MF", "demo/Clock.class", "demo/Other.class"}
	buildJar(t, in, map[string][]byte{
		"META-INF/MANIFEST.MF": manifest,
		"demo/Clock.class":     classBytes(t, clockClass, "tick"),
		"demo/Other.class":     classBytes(t, "demo/Other", "tick"),
	}, order)

	report, err := app.Patch([]string{in}, PatchOptions{OutDir: out, Dump: true})
	require.NoError(t, err)
	wantOutputs := []string{filepath.Join(out, "demo", "Clock.class"), filepath.Join(out, "game.jar")}
	require.Equal(t, wantOutputs, report.Outputs)
	require.Equal(t, in+"!demo/Clock.class", report.Classes[0].Source)

	zr, err := zip.OpenReader(filepath.Join(out, "game.jar"))
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	contents := make(map[string][]byte)
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = data
	}
	require.Equal(t, order, names)
	require.Equal(t, manifest, contents["META-INF/MANIFEST.MF"], "resources should be copied unchanged")
	require.Equal(t, wantClockCalls, invokes(t, contents["demo/Clock.class"], "tick"))
	require.Empty(t, invokes(t, contents["demo/Other.class"], "tick"), "untargeted class changed")

	dumped, err := os.ReadFile(wantOutputs[0])
	require.NoError(t, err)
	require.Equal(t, contents["demo/Clock.class"], dumped, "dumped class should match the jar entry")
}

func TestPatch_FailureWritesNothing(t *testing.T) {
	app := clockApp(t)
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(in, "Clock.class"), classBytes(t, clockClass, "stop"))

	report, err := app.Patch([]string{in}, PatchOptions{OutDir: out})
	require.Error(t, err, "a class without the target method should fail")
	require.True(t, IsIntegrityFailure(err), "error = %v, want an integrity failure", err)
	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, clockClass, failed[0].Class)
	require.Empty(t, report.Outputs)
	require.NoDirExists(t, out)
}

func TestPatch_MissingTarget(t *testing.T) {
	app := clockApp(t)
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "Other.class"), classBytes(t, "demo/Other", "tick"))

	report, err := app.Patch([]string{in}, PatchOptions{OutDir: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, []string{clockClass}, report.Missing)
	require.Empty(t, report.Outputs)
}

func TestPatch_DryRun(t *testing.T) {
	app := clockApp(t)
	in := filepath.Join(t.TempDir(), "Clock.class")
	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, in, classBytes(t, clockClass, "tick"))

	report, err := app.Patch([]string{in}, PatchOptions{OutDir: out, DryRun: true})
	require.NoError(t, err)
	require.Len(t, report.Outputs, 1, "want one planned output")
	require.NoDirExists(t, out, "dry run should write nothing")
}

func TestPatch_InputErrors(t *testing.T) {
	app := clockApp(t)
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	writeFile(t, notes, []byte("x"))
	garbage := filepath.Join(dir, "Broken.class")
	writeFile(t, garbage, []byte("not a class"))

	tests := []struct {
		name   string
		inputs []string
		target error
	}{
		{"no inputs", nil, ErrNoInputs},
		{"unsupported", []string{notes}, ErrUnsupportedInput},
		{"missing", []string{filepath.Join(dir, "missing.jar")}, os.ErrNotExist},
		{"garbage", []string{garbage}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Patch(tt.inputs, PatchOptions{OutDir: t.TempDir()})
			require.Error(t, err)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
			require.False(t, IsIntegrityFailure(err), "input error reported as integrity failure: %v", err)
		})
	}
}
