package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Events int      `json:"events"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r TestResult) String() string {
	if r.Total == 0 {
		return "No scenarios found.\n"
	}
	var b strings.Builder
	for _, s := range r.Scenarios {
		if s.Pass {
			fmt.Fprintf(&b, "✓ %s (%d events)\n", s.Name, s.Events)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run engine scenarios",
		Long: `Run scenario files against a fresh in-memory engine with a deterministic
clock and decision ids. No configuration file is read.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  estimengine test ./scenarios
  estimengine test ./scenarios --filter "ml_*"
  estimengine test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if _, err := os.Stat(dir); err != nil {
		return f.fail(WrapExitError(ExitCommandError, "scenarios directory not found", err))
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "failed to find scenarios", err))
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		f.VerboseLog("running %s", file)
		sr := runScenario(cmd, file)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if err := f.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func runScenario(cmd *cobra.Command, file string) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(cmd.Context(), scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Pass:   result.Pass,
		Events: len(result.Trace),
		Errors: result.Errors,
	}
}
