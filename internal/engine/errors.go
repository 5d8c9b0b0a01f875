package engine

import (
	"errors"
	"fmt"
)

// EngineError is a classified failure reported by the engine.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// DecisionID identifies the affected decision, when known.
	DecisionID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInputValidation indicates a malformed or incomplete request.
	ErrCodeInputValidation ErrorCode = "INPUT_VALIDATION"

	// ErrCodeFeedbackNotFound indicates feedback for an unknown decision.
	ErrCodeFeedbackNotFound ErrorCode = "FEEDBACK_NOT_FOUND"

	// ErrCodePredictorUnavailable and ErrCodePredictorTimeout classify
	// predictor failures in logs. They are never returned to callers.
	ErrCodePredictorUnavailable ErrorCode = "PREDICTOR_UNAVAILABLE"
	ErrCodePredictorTimeout     ErrorCode = "PREDICTOR_TIMEOUT"

	// ErrCodePersistenceFailure indicates the decision store failed.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
)

// ErrFeedbackNotFound matches any EngineError with ErrCodeFeedbackNotFound
// under errors.Is.
var ErrFeedbackNotFound = errors.New("feedback references unknown decision")

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.DecisionID != "" {
		msg = fmt.Sprintf("%s (decision=%s)", msg, e.DecisionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's code.
func (e *EngineError) Is(target error) bool {
	return target == ErrFeedbackNotFound && e.Code == ErrCodeFeedbackNotFound
}

// IsValidationError returns true if err is an input validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInputValidation
	}
	return false
}

// IsNotFound returns true if err reports feedback for an unknown decision.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFeedbackNotFound)
}

// Code returns the EngineError code in err's chain, or "".
func Code(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func newValidationError(err error) *EngineError {
	return &EngineError{
		Code:    ErrCodeInputValidation,
		Message: "invalid estimation input",
		Err:     err,
	}
}

func newNotFoundError(id string) *EngineError {
	return &EngineError{
		Code:       ErrCodeFeedbackNotFound,
		Message:    "no decision with this id",
		DecisionID: id,
	}
}

func newPersistenceError(op, id string, err error) *EngineError {
	return &EngineError{
		Code:       ErrCodePersistenceFailure,
		Message:    op + " failed",
		DecisionID: id,
		Err:        err,
	}
}
