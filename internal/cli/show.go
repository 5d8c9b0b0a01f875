package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <decision-id>",
		Short: "Print a stored decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0])
		},
	}
}

func runShow(opts *RootOptions, cmd *cobra.Command, id string) error {
	f := opts.formatter(cmd)

	app, err := openApp(cmd.Context(), opts, opts.deps)
	if err != nil {
		return f.fail(err)
	}
	defer closeApp(app)

	d, found, err := app.Engine.Store().Get(cmd.Context(), id)
	if err != nil && !errors.Is(err, decision.ErrNotFound) {
		return f.fail(WrapExitError(ExitCommandError, "failed to read decision", err))
	}
	if !found {
		_ = f.Error(CLIError{Code: CodeNotFound, Message: "no decision with this id", DecisionID: id})
		return NewExitError(ExitFailure, "decision "+id+" not found")
	}
	return f.Success(decisionView{d})
}
