package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewFeedbackCommand creates the feedback command.
func NewFeedbackCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <decision-id> <actual-hours>",
		Short: "Report how long a job actually took",
		Long: `Record the actual duration of a job so the accuracy metrics can score the
decision that estimated it. Only the first report for a decision counts.

Example:
  estimengine feedback 0192a0b0-7c1e-7000-8000-3f2a1b4c5d6e 6.5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(rootOpts, cmd, args[0], args[1])
		},
	}
	return cmd
}

func runFeedback(opts *RootOptions, cmd *cobra.Command, id, rawActual string) error {
	f := opts.formatter(cmd)

	actual, err := strconv.ParseFloat(rawActual, 64)
	if err != nil {
		return f.fail(WrapExitError(ExitFailure, "actual hours must be a number", err))
	}

	app, err := openApp(cmd.Context(), opts, opts.deps)
	if err != nil {
		return f.fail(err)
	}
	defer closeApp(app)

	if err := app.Engine.RecordOutcome(cmd.Context(), id, actual); err != nil {
		return f.fail(err)
	}
	return f.Success(feedbackView{DecisionID: id, Actual: actual, Metrics: app.Engine.Snapshot()})
}
