package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/starhook/internal/app"
)

func newWatchCmd(root *rootFlags) *cobra.Command {
	p := &patchFlags{}
	cmd := &cobra.Command{
		Use:   "watch <input>...",
		Short: "Patch the inputs again whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, opts, err := p.options(cmd, root)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			err = a.Watch(ctx, args, opts, func(report *app.Report, err error) {
				// A failed pass is reported and the next change retried.
				_ = printReport(w, report, err, opts.DryRun)
				if err != nil && !app.IsIntegrityFailure(err) {
					cmd.PrintErrln(red("error:"), err)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	p.register(cmd, true)
	return cmd
}
