package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/engine"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(CLIError{Code: CodeNotFound, Message: "no decision with this id", DecisionID: "d-1"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
	assert.Equal(t, "d-1", resp.Error.DecisionID)
}

func TestOutputFormatter_TextSuccessStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(exportView{Path: "out.xlsx", Bytes: 10}))
	assert.Contains(t, buf.String(), "Wrote out.xlsx (10 bytes)")
}

func TestOutputFormatter_TextSuccessPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error(CLIError{Code: "INPUT_VALIDATION", Message: "bad", Details: []string{"volume"}}))
	assert.Contains(t, buf.String(), "Error [INPUT_VALIDATION]: bad")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("persisted %s", "d-1")
	assert.Empty(t, out.String())
	assert.Contains(t, diag.String(), "persisted d-1")

	formatter.Verbose = false
	diag.Reset()
	formatter.VerboseLog("hidden")
	assert.Empty(t, diag.String())
}

func TestDescribeError(t *testing.T) {
	validation := &estimate.ValidationError{Fields: []estimate.FieldError{{Field: "volume", Message: "required"}}}

	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"bare validation", validation, "INPUT_VALIDATION", ExitFailure},
		{"engine not found", &engine.EngineError{Code: engine.ErrCodeFeedbackNotFound, Message: "no decision"}, "FEEDBACK_NOT_FOUND", ExitFailure},
		{"engine persistence", &engine.EngineError{Code: engine.ErrCodePersistenceFailure, Message: "lookup failed"}, "PERSISTENCE_FAILURE", ExitCommandError},
		{"setup", WrapExitError(ExitCommandError, "failed to load config", errors.New("boom")), CodeSetup, ExitCommandError},
		{"other", fmt.Errorf("unexpected"), CodeInternal, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, code := describeError(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantExit, code)
		})
	}
}

func TestDescribeError_ValidationDetails(t *testing.T) {
	fields := []estimate.FieldError{{Field: "teamSize", Message: "minimum 1"}}
	err := &engine.EngineError{
		Code:    engine.ErrCodeInputValidation,
		Message: "invalid estimation input",
		Err:     &estimate.ValidationError{Fields: fields},
	}
	e, _ := describeError(err)
	assert.Equal(t, fields, e.Details)
}

func TestFail_ReturnsExitError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.fail(&engine.EngineError{Code: engine.ErrCodeFeedbackNotFound, Message: "no decision", DecisionID: "x"})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsNotFound(err))
	assert.Contains(t, buf.String(), `"FEEDBACK_NOT_FOUND"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
