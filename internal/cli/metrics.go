package cli

import (
	"github.com/spf13/cobra"
)

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print decision and accuracy metrics rebuilt from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			app, err := openApp(cmd.Context(), rootOpts, rootOpts.deps)
			if err != nil {
				return f.fail(err)
			}
			defer closeApp(app)
			return f.Success(snapshotView{app.Engine.Snapshot()})
		},
	}
}
