package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// ScriptExt is the file extension of extension scripts.
const ScriptExt = ".lua"

// LoadDir loads every script in dir, in file name order. Scripts that fail
// to load are reported together; the ones that loaded are still returned.
func LoadDir(dir string, opts ...Option) ([]*Extension, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading extension directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ScriptExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*Extension
	var errs *multierror.Error
	for _, name := range names {
		x, err := Load(filepath.Join(dir, name), opts...)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = append(out, x)
	}
	return out, errs.ErrorOrNil()
}

// CloseAll closes every extension.
func CloseAll(xs []*Extension) error {
	var errs *multierror.Error
	for _, x := range xs {
		if err := x.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
