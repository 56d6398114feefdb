package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/starhook/internal/app"
)

type patchFlags struct {
	manifest string
	outDir   string
	dump     bool
	dryRun   bool
}

func (p *patchFlags) register(cmd *cobra.Command, write bool) {
	f := cmd.Flags()
	f.StringVarP(&p.manifest, "manifest", "m", "", "instrumentation manifest (default: built-in)")
	if write {
		f.StringVarP(&p.outDir, "out", "o", "", "output directory for patched classes and jars")
		f.BoolVar(&p.dump, "dump", false, "also write classes patched inside jars as loose class files")
		f.BoolVarP(&p.dryRun, "dry-run", "n", false, "transform without writing anything")
	}
}

// options merges the command line into the configured patch settings.
func (p *patchFlags) options(cmd *cobra.Command, root *rootFlags) (*app.App, app.PatchOptions, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, app.PatchOptions{}, err
	}
	if p.manifest != "" {
		cfg.Patch.Manifest = p.manifest
	}
	if p.outDir != "" {
		cfg.Patch.OutDir = p.outDir
	}
	if cmd.Flags().Changed("dump") {
		cfg.Patch.Dump = p.dump
	}
	a, err := root.newApp(cmd, cfg)
	if err != nil {
		return nil, app.PatchOptions{}, err
	}
	return a, app.PatchOptions{
		OutDir: cfg.Patch.OutDir,
		Dump:   cfg.Patch.Dump,
		DryRun: p.dryRun,
	}, nil
}

func newPatchCmd(root *rootFlags) *cobra.Command {
	p := &patchFlags{}
	cmd := &cobra.Command{
		Use:   "patch <input>...",
		Short: "Patch class files, jars or directories",
		Long: `Patch transforms every class the manifest plans that is found in the
inputs. Nothing is written unless every found class patches cleanly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, opts, err := p.options(cmd, root)
			if err != nil {
				return err
			}
			defer a.Shutdown()
			report, err := a.Patch(args, opts)
			return printReport(cmd.OutOrStdout(), report, err, opts.DryRun)
		},
	}
	p.register(cmd, true)
	return cmd
}

func newCheckCmd(root *rootFlags) *cobra.Command {
	p := &patchFlags{dryRun: true}
	cmd := &cobra.Command{
		Use:   "check <input>...",
		Short: "Verify that the inputs can be patched without writing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, opts, err := p.options(cmd, root)
			if err != nil {
				return err
			}
			defer a.Shutdown()
			opts.DryRun = true
			report, err := a.Patch(args, opts)
			return printReport(cmd.OutOrStdout(), report, err, true)
		},
	}
	p.register(cmd, false)
	return cmd
}

// printReport writes a per-class summary. A run with integrity failures
// returns an integrityError after listing them.
func printReport(w io.Writer, report *app.Report, err error, dryRun bool) error {
	if report == nil {
		return err
	}
	for _, c := range report.Classes {
		if c.Patched() {
			fmt.Fprintf(w, "%s %s (%s)\n", green("patched"), bold(c.Class), c.Source)
			continue
		}
		fmt.Fprintf(w, "%s %s (%s)\n", red("failed "), bold(c.Class), c.Source)
		if c.Result != nil {
			if missing := c.Result.Missing(); len(missing) > 0 {
				fmt.Fprintf(w, "        unspliced: %s\n", strings.Join(missing, ", "))
			}
		}
		if c.Err != nil {
			for _, line := range strings.Split(strings.TrimSpace(c.Err.Error()), "\n") {
				fmt.Fprintf(w, "        %s\n", strings.TrimSpace(line))
			}
		}
	}
	for _, m := range report.Missing {
		fmt.Fprintf(w, "%s %s not found in inputs\n", yellow("missing"), bold(m))
	}

	if err != nil {
		if app.IsIntegrityFailure(err) {
			fmt.Fprintf(w, "%s %d of %d planned classes could not be patched; nothing was written\n",
				red("error:"), len(report.Failed()), len(report.Classes))
			return &integrityError{err: err}
		}
		return err
	}

	verb := "wrote"
	if dryRun {
		verb = "would write"
	}
	for _, o := range report.Outputs {
		fmt.Fprintf(w, "%s %s\n", verb, o)
	}
	fmt.Fprintf(w, "%d classes scanned, %d patched\n", report.Scanned, len(report.Classes))
	return nil
}
