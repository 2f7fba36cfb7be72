package cli

import (
	"errors"

	"github.com/tyemirov/taskrun/internal/runner"
	"github.com/tyemirov/taskrun/internal/taskgraph"
)

// Process exit codes. A failing step propagates its own exit code.
const (
	exitCodeSuccessConstant      = 0
	exitCodeFailureConstant      = 1
	exitCodeUsageFailureConstant = 2
)

// ExitCode maps an Execute error to the process exit status: 0 on success,
// the failing step's exit code for step failures, 2 for unknown task names,
// and 1 otherwise.
func ExitCode(executionError error) int {
	if executionError == nil {
		return exitCodeSuccessConstant
	}

	var stepFailed runner.StepFailedError
	if errors.As(executionError, &stepFailed) {
		if stepFailed.ExitCode > 0 {
			return stepFailed.ExitCode
		}
		return exitCodeFailureConstant
	}

	var unknownTask taskgraph.UnknownTaskError
	if errors.As(executionError, &unknownTask) {
		return exitCodeUsageFailureConstant
	}

	return exitCodeFailureConstant
}
