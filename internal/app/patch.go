package app

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dshills/starhook/internal/classfile"
	"github.com/dshills/starhook/internal/instrument"
	"github.com/dshills/starhook/internal/logging"
)

// Input file extensions.
const (
	ClassExt = ".class"
	JarExt   = ".jar"
)

// PatchOptions controls a patch pass.
type PatchOptions struct {
	// OutDir receives patched classes and archives. It is skipped when
	// walking input directories.
	OutDir string

	// Dump also writes every class patched inside an archive as a loose
	// class file under OutDir.
	Dump bool

	// DryRun transforms everything but writes nothing.
	DryRun bool
}

// ClassReport is the outcome for one planned class.
type ClassReport struct {
	Class  string
	Source string
	Result *instrument.Result
	Err    error
}

// Patched reports whether every anchor of the class was spliced.
func (c ClassReport) Patched() bool {
	return c.Err == nil && c.Result != nil && c.Result.Patched()
}

// Report summarizes a patch pass.
type Report struct {
	// Scanned counts the class files examined.
	Scanned int

	// Classes lists every planned class that was found, in input order.
	Classes []ClassReport

	// Missing lists planned classes that no input contained.
	Missing []string

	// Outputs lists the files written, or that would be written on a dry
	// run.
	Outputs []string
}

// Failed returns the classes that could not be patched.
func (r *Report) Failed() []ClassReport {
	var out []ClassReport
	for _, c := range r.Classes {
		if !c.Patched() {
			out = append(out, c)
		}
	}
	return out
}

type output struct {
	path string
	data []byte
}

// patchRun holds the state of one pass. Outputs are kept in memory so a
// pass with any failure writes nothing.
type patchRun struct {
	engine  *instrument.Engine
	opts    PatchOptions
	outAbs  string
	log     zerolog.Logger
	report  *Report
	outputs []output
	errs    *multierror.Error
}

// Patch transforms every planned class found in inputs. Inputs may be
// directories, class files or jars. Outputs are written only when every
// planned class that was found patched cleanly; otherwise the returned error
// aggregates all failures and the report tells which classes failed.
func (a *App) Patch(inputs []string, opts PatchOptions) (*Report, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	engine, err := a.NewEngine()
	if err != nil {
		return nil, err
	}
	run := &patchRun{
		engine: engine,
		opts:   opts,
		log:    logging.Component(*a.log, "patch"),
		report: &Report{},
	}
	if opts.OutDir != "" {
		if abs, err := filepath.Abs(opts.OutDir); err == nil {
			run.outAbs = abs
		}
	}

	for _, in := range inputs {
		run.input(in)
	}
	for _, t := range engine.Targets() {
		if !run.found(t) {
			run.report.Missing = append(run.report.Missing, t)
			run.log.Warn().Str("class", t).Msg("planned class not found in inputs")
		}
	}
	if err := run.errs.ErrorOrNil(); err != nil {
		return run.report, err
	}

	for _, o := range run.outputs {
		run.report.Outputs = append(run.report.Outputs, o.path)
		if opts.DryRun {
			continue
		}
		if err := writeOutput(o); err != nil {
			run.errs = multierror.Append(run.errs, &OperationError{Op: "write", Target: o.path, Err: err})
		}
	}
	if err := run.errs.ErrorOrNil(); err != nil {
		return run.report, err
	}
	run.log.Info().
		Int("scanned", run.report.Scanned).
		Int("patched", len(run.report.Classes)).
		Int("outputs", len(run.report.Outputs)).
		Bool("dry_run", opts.DryRun).
		Msg("patch pass complete")
	return run.report, nil
}

func (r *patchRun) fail(op, target string, err error) {
	r.errs = multierror.Append(r.errs, &OperationError{Op: op, Target: target, Err: err})
}

func (r *patchRun) found(class string) bool {
	for _, c := range r.report.Classes {
		if c.Class == class {
			return true
		}
	}
	return false
}

func (r *patchRun) input(path string) {
	info, err := os.Stat(path)
	if err != nil {
		r.fail("read", path, err)
		return
	}
	if info.IsDir() {
		r.dir(path)
		return
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ClassExt:
		r.classFile(path)
	case JarExt:
		r.jar(path)
	default:
		r.fail("read", path, ErrUnsupportedInput)
	}
}

func (r *patchRun) dir(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if r.outAbs != "" {
				if abs, err := filepath.Abs(path); err == nil && abs == r.outAbs {
					return filepath.SkipDir
				}
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ClassExt:
			r.classFile(path)
		case JarExt:
			r.jar(path)
		}
		return nil
	})
	if err != nil {
		r.fail("walk", root, err)
	}
}

func (r *patchRun) classFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.fail("read", path, err)
		return
	}
	cls, err := classfile.Parse(data)
	if err != nil {
		r.fail("parse", path, err)
		return
	}
	r.report.Scanned++
	if !r.engine.IsValidTarget(cls.Name) {
		return
	}
	out, err := r.transform(path, cls)
	if err != nil {
		return
	}
	r.outputs = append(r.outputs, output{path: r.classPath(cls.Name), data: out})
}

func (r *patchRun) jar(path string) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		r.fail("read", path, err)
		return
	}
	defer zr.Close()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	changed := false
	for _, f := range zr.File {
		data, err := readEntry(f)
		if err != nil {
			r.fail("read", path+"!"+f.Name, err)
			continue
		}
		if name, ok := strings.CutSuffix(f.Name, ClassExt); ok {
			r.report.Scanned++
			if r.engine.IsValidTarget(name) {
				if out, ok := r.jarClass(path+"!"+f.Name, data); ok {
					data = out
					changed = true
					if r.opts.Dump {
						r.outputs = append(r.outputs, output{path: r.classPath(name), data: out})
					}
				}
			}
		}
		hdr := &zip.FileHeader{
			Name:     f.Name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		}
		hdr.SetMode(f.Mode())
		w, err := zw.CreateHeader(hdr)
		if err == nil {
			_, err = w.Write(data)
		}
		if err != nil {
			r.fail("repack", path+"!"+f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		r.fail("repack", path, err)
		return
	}
	if changed {
		r.outputs = append(r.outputs, output{path: filepath.Join(r.opts.OutDir, filepath.Base(path)), data: buf.Bytes()})
	}
}

func (r *patchRun) jarClass(source string, data []byte) ([]byte, bool) {
	cls, err := classfile.Parse(data)
	if err != nil {
		r.fail("parse", source, err)
		return nil, false
	}
	out, err := r.transform(source, cls)
	return out, err == nil
}

func (r *patchRun) transform(source string, cls *classfile.Class) ([]byte, error) {
	result, err := r.engine.Transform(cls)
	r.report.Classes = append(r.report.Classes, ClassReport{
		Class:  cls.Name,
		Source: source,
		Result: result,
		Err:    err,
	})
	if err != nil {
		r.fail("patch", source, err)
		return nil, err
	}
	out, err := cls.Bytes()
	if err != nil {
		r.fail("encode", source, err)
		return nil, err
	}
	r.log.Debug().Str("class", cls.Name).Str("source", source).Msg("class transformed")
	return out, nil
}

func (r *patchRun) classPath(name string) string {
	return filepath.Join(r.opts.OutDir, filepath.FromSlash(name)+ClassExt)
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.FileInfo().IsDir() {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeOutput(o output) error {
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(o.path, o.data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// IsIntegrityFailure reports whether err contains an instrumentation
// integrity error, as opposed to an I/O or input problem.
func IsIntegrityFailure(err error) bool {
	var ie *instrument.IntegrityError
	return errors.As(err, &ie)
}
