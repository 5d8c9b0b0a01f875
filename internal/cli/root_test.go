package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "estimengine", cmd.Use)
	assert.Contains(t, cmd.Long, "confidence score")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"estimate", "feedback", "show", "metrics", "export", "serve", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestEstimateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	estimateCmd, _, err := cmd.Find([]string{"estimate"})
	require.NoError(t, err)

	inputFlag := estimateCmd.Flags().Lookup("input")
	require.NotNil(t, inputFlag)
	assert.Equal(t, "i", inputFlag.Shorthand)
	assert.Equal(t, "-", inputFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	workers := serveCmd.Flags().Lookup("workers")
	require.NotNil(t, workers)
	assert.Equal(t, "8", workers.DefValue)

	eventsFlag := serveCmd.Flags().Lookup("events")
	require.NotNil(t, eventsFlag)
	assert.Equal(t, "false", eventsFlag.DefValue)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	output := exportCmd.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "decisions.xlsx", output.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"metrics", "--format", "xml"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestFeedbackRequiresTwoArgs(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"feedback", "only-id"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}
