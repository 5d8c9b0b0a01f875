package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/export"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/schedule"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	From   string
	To     string
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write decisions and outcomes to an XLSX workbook",
		Long: `Write an audit workbook of the decisions created between --from and --to
(inclusive calendar days in the configured timezone) and their outcomes.

Example:
  estimengine export --from 2026-03-01 --to 2026-03-31 -o march.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day, YYYY-MM-DD (default --from)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "decisions.xlsx", "output file")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	app, err := openApp(cmd.Context(), opts.RootOptions, opts.deps)
	if err != nil {
		return f.fail(err)
	}
	defer closeApp(app)

	now := time.Now
	if opts.deps.now != nil {
		now = opts.deps.now
	}
	from, to, err := exportWindow(opts.From, opts.To, now(), app.Config.Location)
	if err != nil {
		return f.fail(WrapExitError(ExitFailure, "invalid date range", err))
	}

	svc := export.NewService(app.Engine.Store(), nil)
	data, err := svc.ExportXLSX(cmd.Context(), from, to)
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "export failed", err))
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return f.fail(WrapExitError(ExitCommandError, "failed to write workbook", err))
	}

	return f.Success(exportView{Path: opts.Output, Bytes: len(data), From: from, To: to.AddDate(0, 0, -1)})
}

// exportWindow turns inclusive calendar days into a half-open time range.
func exportWindow(fromDay, toDay string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	from := schedule.DayStart(now, loc)
	if fromDay != "" {
		t, err := time.ParseInLocation(time.DateOnly, fromDay, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
		from = t
	}
	last := from
	if toDay != "" {
		t, err := time.ParseInLocation(time.DateOnly, toDay, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		last = t
	}
	if last.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", last.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return from, last.AddDate(0, 0, 1), nil
}
