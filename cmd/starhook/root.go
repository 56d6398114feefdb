package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/starhook/internal/app"
	"github.com/dshills/starhook/internal/config"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
}

// integrityError marks a run that found classes it could not patch. Its
// message has already been reported.
type integrityError struct {
	err error
}

func (e *integrityError) Error() string { return e.err.Error() }
func (e *integrityError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "starhook",
		Short: "Splice event hooks into compiled host classes",
		Long: `starhook rewrites the compiled classes of a host game so that selected
methods call into an event bridge. Listeners, including Lua extensions,
observe and cancel what the game does through prioritized events.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to the configuration file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (auto, console, json)")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newPatchCmd(flags),
		newCheckCmd(flags),
		newWatchCmd(flags),
		newHooksCmd(flags),
		newDisCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig layers the command line over the configuration file and the
// environment.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	return cfg, cfg.Validate()
}

func (f *rootFlags) newApp(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	return app.New(cfg, app.WithLogOutput(cmd.ErrOrStderr()))
}

func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	var ie *integrityError
	if errors.As(err, &ie) {
		return exitIntegrity
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", red("error:"), err)
	return exitError
}
