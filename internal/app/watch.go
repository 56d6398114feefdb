package app

import (
	"context"

	"github.com/dshills/starhook/internal/logging"
	"github.com/dshills/starhook/internal/watcher"
)

// ReportFunc receives the outcome of every pass of Watch.
type ReportFunc func(report *Report, err error)

// Watch runs a patch pass over inputs, then runs another one every time a
// class file or jar below them changes. Each pass uses a fresh engine. Watch
// returns when ctx is done or the watcher fails.
func (a *App) Watch(ctx context.Context, inputs []string, opts PatchOptions, fn ReportFunc) error {
	if len(inputs) == 0 {
		return ErrNoInputs
	}
	wopts := []watcher.Option{
		watcher.WithDebounce(a.config.Watch.Debounce.Duration),
		watcher.WithExtensions(ClassExt, JarExt),
		watcher.WithLogger(logging.Component(*a.log, "watcher")),
	}
	if opts.OutDir != "" {
		wopts = append(wopts, watcher.WithIgnore(opts.OutDir))
	}
	w, err := watcher.New(wopts...)
	if err != nil {
		return err
	}
	defer w.Close()
	for _, in := range inputs {
		if err := w.Add(in); err != nil {
			return err
		}
	}

	fn(a.Patch(inputs, opts))
	return w.Run(ctx, func(batch []watcher.Event) {
		for _, ev := range batch {
			a.log.Debug().Str("path", ev.Path).Stringer("op", ev.Op).Msg("input changed")
		}
		fn(a.Patch(inputs, opts))
	})
}
