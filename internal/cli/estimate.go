package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// EstimateOptions holds flags for the estimate command.
type EstimateOptions struct {
	*RootOptions
	Input string
}

// NewEstimateCommand creates the estimate command.
func NewEstimateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EstimateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the hours for a moving job",
		Long: `Read an estimation input as JSON and issue a decision.

Example:
  estimengine estimate --input job.json
  echo '{"volume":25,"teamSize":3,"distance":12}' | estimengine estimate --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "input JSON file, or - for stdin")

	return cmd
}

func runEstimate(opts *EstimateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	data, err := readInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "failed to read input", err))
	}
	in, err := estimate.ParseInput(data)
	if err != nil {
		return f.fail(err)
	}

	app, err := openApp(cmd.Context(), opts.RootOptions, opts.deps)
	if err != nil {
		return f.fail(err)
	}
	defer closeApp(app)

	d, err := app.Engine.Estimate(cmd.Context(), in)
	if err != nil {
		return f.fail(err)
	}
	f.VerboseLog("decision %s persisted to %s store", d.ID, app.Config.Store.Driver)
	return f.Success(decisionView{d})
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
