package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyhall/shell/internal/config"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	logLevel  string
	logFormat string
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serveCmd := newServeCommand(opts)

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Study shell server - guarded navigation for the study platform",
		Long: `The study shell server serves the single-page study platform and decides,
for every navigation, whether the visitor may see the requested page.

The server supports:
- A declarative route table (built-in or loaded from YAML, hot reloaded)
- A navigation guard driven by the persisted access token
- A JSON navigation API mirroring the guard decisions
- Health, metrics and tracing endpoints for operations`,
		SilenceUsage: true,
		// Run the serve command by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newHealthcheckCommand())
	rootCmd.AddCommand(newRoutesCommand(opts))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}

	return cfg, nil
}
