package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHooksCmd(root *rootFlags) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List the classes the manifest targets and the hooks the bridge implements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if manifest != "" {
				cfg.Patch.Manifest = manifest
			}
			a, err := root.newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Shutdown()
			engine, err := a.NewEngine()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, bold("targets"))
			for _, t := range engine.Targets() {
				fmt.Fprintf(w, "  %s\n", t)
			}
			used := make(map[string]bool)
			for _, h := range engine.HookRefs() {
				used[h.String()] = true
			}
			fmt.Fprintln(w, bold("hooks"))
			for _, h := range a.Hooks().Refs() {
				state := green("used  ")
				if !used[h.String()] {
					state = yellow("unused")
				}
				fmt.Fprintf(w, "  %s %s\n", state, h)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "instrumentation manifest (default: built-in)")
	return cmd
}
