package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/engine"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Request rejected (invalid input, unknown decision)
	ExitCommandError = 2 // Command error (bad config, store unreachable, etc.)
)

// Error codes reported by the CLI in addition to engine.ErrorCode values.
const (
	CodeNotFound = "NOT_FOUND"
	CodeSetup    = "SETUP"
	CodeInternal = "INTERNAL"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	DecisionID string `json:"decisionId,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
// In text mode, values implementing fmt.Stringer render through String.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if s, ok := data.(fmt.Stringer); ok {
		_, err := io.WriteString(f.Writer, s.String())
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(e CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &e,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Goes to ErrWriter when set so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// describeError maps err onto a CLIError and an exit code.
func describeError(err error) (CLIError, int) {
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		out := CLIError{Code: string(ee.Code), Message: ee.Message, DecisionID: ee.DecisionID}
		if len(ee.Details) > 0 {
			out.Details = ee.Details
		}
		var ve *estimate.ValidationError
		if errors.As(err, &ve) {
			out.Details = ve.Fields
		}
		if ee.Code == engine.ErrCodePersistenceFailure {
			return out, ExitCommandError
		}
		return out, ExitFailure
	}

	var ve *estimate.ValidationError
	if errors.As(err, &ve) {
		return CLIError{Code: string(engine.ErrCodeInputValidation), Message: ve.Error(), Details: ve.Fields}, ExitFailure
	}

	var xe *ExitError
	if errors.As(err, &xe) {
		code := CodeInternal
		if xe.Code == ExitCommandError {
			code = CodeSetup
		}
		return CLIError{Code: code, Message: xe.Error()}, xe.Code
	}
	return CLIError{Code: CodeInternal, Message: err.Error()}, ExitFailure
}

// fail writes err through f and returns an ExitError carrying its code.
func (f *OutputFormatter) fail(err error) error {
	e, code := describeError(err)
	if writeErr := f.Error(e); writeErr != nil {
		return WrapExitError(ExitCommandError, "write error response", writeErr)
	}
	return &ExitError{Code: code, Message: e.Message, Err: err}
}
