package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	deps appDeps
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the estimengine CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimengine",
		Short: "Moving job time estimation engine",
		Long: `Estimate how many hours a moving job will take, with a confidence score,
an approval status and an auditable decision record.

Every estimate is persisted so that actual durations reported later can be
scored against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $ESTIMATOR_CONFIG or ./estimator.yaml)")

	cmd.AddCommand(NewEstimateCommand(opts))
	cmd.AddCommand(NewFeedbackCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewMetricsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			// Flag and argument errors never reached a formatter.
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return GetExitCode(err)
	}
	return ExitSuccess
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
