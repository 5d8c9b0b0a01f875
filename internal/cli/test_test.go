package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: bare_job_review
description: "A bare job goes to review"
flow:
  - estimate: { volume: 25, teamSize: 1, distance: 12 }
    expect: { status: pending }
assertions:
  - type: event_order
    kinds: [decision, reviewRequired]
`

const failingScenario = `
name: wrong_status
description: "Expects the bare job to be approved"
flow:
  - estimate: { volume: 25, teamSize: 1, distance: 12 }
    expect: { status: approved }
assertions:
  - type: event_count
    kind: decision
    count: 1
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestCLI_TestAllPass(t *testing.T) {
	env := newTestEnv(t)
	dir := writeScenarios(t, map[string]string{
		"bare.yaml": passingScenario,
		"notes.txt": "ignored",
	})

	out, err := env.run(t, "", "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ bare_job_review (2 events)")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestCLI_TestFailureExitCode(t *testing.T) {
	env := newTestEnv(t)
	dir := writeScenarios(t, map[string]string{
		"bare.yaml":  passingScenario,
		"wrong.yaml": failingScenario,
	})

	out, err := env.run(t, "", "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)

	var failed ScenarioResult
	for _, s := range resp.Data.Scenarios {
		if !s.Pass {
			failed = s
		}
	}
	assert.Equal(t, "wrong_status", failed.Name)
	require.NotEmpty(t, failed.Errors)
	assert.Contains(t, failed.Errors[0], "status: expected approved, got pending")
}

func TestCLI_TestFilterAndLoadErrors(t *testing.T) {
	env := newTestEnv(t)
	dir := writeScenarios(t, map[string]string{
		"bare.yaml":   passingScenario,
		"broken.yaml": "name: [",
	})

	out, err := env.run(t, "", "test", dir, "--filter", "bare*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out, err = env.run(t, "", "test", dir, "--filter", "broken")
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestCLI_TestMissingDirectory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCLI_TestNoScenarios(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}
