// ABOUTME: Mapping from engine error kinds to process exit codes
// ABOUTME: Keeps scripted callers able to distinguish failure classes

package cli

import (
	"context"
	"errors"

	"github.com/loferris/artificer/pkg/types"
)

// exitCode maps an error to the CLI's exit code contract
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch {
	case types.IsValidation(err):
		return ExitValidation
	case types.IsNotFound(err):
		return ExitNotFound
	case types.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	default:
		return ExitError
	}
}

// exitError carries a pre-computed exit code through cobra's error path
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func newExitError(code int, message string) *exitError {
	return &exitError{code: code, message: message}
}
