package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const environmentEntryTemplateConstant = "%s=%s"

// OSCommandRunner executes shell commands through os/exec. The child process
// inherits the parent environment; explicit environment variables are applied
// on top of it. Execution is synchronous: Run waits for the process to exit.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an operating-system backed command runner.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run starts the requested program and waits for completion. A non-zero exit
// status is reported through ExecutionResult.ExitCode with a nil error;
// failures to start or wait are returned as errors.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executableCommand := exec.CommandContext(executionContext, command.Program, command.Details.Arguments...)
	executableCommand.Dir = command.Details.WorkingDirectory
	executableCommand.Env = mergeEnvironment(command.Details.EnvironmentVariables)

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executableCommand.Stdout = &standardOutputBuffer
	executableCommand.Stderr = &standardErrorBuffer

	runError := executableCommand.Run()

	executionResult := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if runError != nil {
		var exitError *exec.ExitError
		if errors.As(runError, &exitError) {
			executionResult.ExitCode = exitError.ExitCode()
			return executionResult, nil
		}
		return ExecutionResult{}, runError
	}

	executionResult.ExitCode = executableCommand.ProcessState.ExitCode()
	return executionResult, nil
}

func mergeEnvironment(environmentVariables map[string]string) []string {
	merged := os.Environ()
	for environmentKey, environmentValue := range environmentVariables {
		merged = append(merged, fmt.Sprintf(environmentEntryTemplateConstant, environmentKey, environmentValue))
	}
	return merged
}
