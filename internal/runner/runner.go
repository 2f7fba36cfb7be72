// Package runner executes resolved task plans step by step against the shell
// executor, stopping at the first failing command.
package runner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tyemirov/taskrun/internal/execshell"
	"github.com/tyemirov/taskrun/internal/taskgraph"
)

const (
	runnerLoggerNotConfiguredMessageConstant   = "plan runner logger not configured"
	runnerExecutorNotConfiguredMessageConstant = "plan runner command executor not configured"
	planStartMessageConstant                   = "task execution starting"
	planCompletedMessageConstant               = "task execution completed"
	planStepFailedMessageConstant              = "task step failed"
	taskFieldNameConstant                      = "task"
	stepCountFieldNameConstant                 = "step_count"
	stepIndexFieldNameConstant                 = "step_index"
	stepProgramFieldNameConstant               = "program"
	stepExitCodeFieldNameConstant              = "exit_code"
	stepFailedErrorMessageTemplateConstant     = "step %d (%s) failed with exit code %d"
	unavailableExitCodeConstant                = -1
)

var (
	// ErrRunnerLoggerNotConfigured indicates the logger dependency was missing.
	ErrRunnerLoggerNotConfigured = errors.New(runnerLoggerNotConfiguredMessageConstant)
	// ErrRunnerExecutorNotConfigured indicates the command executor dependency was missing.
	ErrRunnerExecutorNotConfigured = errors.New(runnerExecutorNotConfiguredMessageConstant)
)

// Environment carries the ambient process context handed to every step. It is
// passed explicitly so tests can substitute a controlled working directory and
// variable set instead of relying on process-global state.
type Environment struct {
	WorkingDirectory     string
	EnvironmentVariables map[string]string
}

// StepFailedError reports the first failing step of a plan. Steps before the
// failing one have already run and are not undone.
type StepFailedError struct {
	TaskName  string
	StepIndex int
	Program   string
	ExitCode  int
	Cause     error
}

// Error identifies the failing step, program, and exit code.
func (stepError StepFailedError) Error() string {
	return fmt.Sprintf(stepFailedErrorMessageTemplateConstant, stepError.StepIndex, stepError.Program, stepError.ExitCode)
}

// Unwrap exposes the underlying execution error.
func (stepError StepFailedError) Unwrap() error {
	return stepError.Cause
}

// CommandExecutor runs a single shell command.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// PlanRunner executes execution plans synchronously and in order.
type PlanRunner struct {
	logger          *zap.Logger
	commandExecutor CommandExecutor
}

// NewPlanRunner builds a runner for the provided executor and logger.
func NewPlanRunner(logger *zap.Logger, commandExecutor CommandExecutor) (*PlanRunner, error) {
	if logger == nil {
		return nil, ErrRunnerLoggerNotConfigured
	}
	if commandExecutor == nil {
		return nil, ErrRunnerExecutorNotConfigured
	}
	return &PlanRunner{logger: logger, commandExecutor: commandExecutor}, nil
}

// Run executes each invocation of the plan in order. The first step exiting
// non-zero (or failing to start) stops execution and is reported as a
// StepFailedError; later steps never run. There is no retry and no rollback.
func (planRunner *PlanRunner) Run(executionContext context.Context, plan taskgraph.ExecutionPlan, environment Environment) error {
	planRunner.logger.Info(planStartMessageConstant,
		zap.String(taskFieldNameConstant, plan.TaskName),
		zap.Int(stepCountFieldNameConstant, len(plan.Invocations)),
	)

	for invocationIndex := range plan.Invocations {
		invocation := plan.Invocations[invocationIndex]
		shellCommand := execshell.ShellCommand{
			Program: invocation.Program,
			Details: execshell.CommandDetails{
				Arguments:            invocation.Arguments,
				WorkingDirectory:     environment.WorkingDirectory,
				EnvironmentVariables: environment.EnvironmentVariables,
			},
		}

		_, executionError := planRunner.commandExecutor.Execute(executionContext, shellCommand)
		if executionError != nil {
			stepError := StepFailedError{
				TaskName:  plan.TaskName,
				StepIndex: invocationIndex,
				Program:   invocation.Program,
				ExitCode:  resolveExitCode(executionError),
				Cause:     executionError,
			}
			planRunner.logger.Error(planStepFailedMessageConstant,
				zap.String(taskFieldNameConstant, plan.TaskName),
				zap.Int(stepIndexFieldNameConstant, stepError.StepIndex),
				zap.String(stepProgramFieldNameConstant, stepError.Program),
				zap.Int(stepExitCodeFieldNameConstant, stepError.ExitCode),
			)
			return stepError
		}
	}

	planRunner.logger.Info(planCompletedMessageConstant,
		zap.String(taskFieldNameConstant, plan.TaskName),
		zap.Int(stepCountFieldNameConstant, len(plan.Invocations)),
	)
	return nil
}

// RunTaskByName resolves the named task against the registry and runs the
// resulting plan.
func (planRunner *PlanRunner) RunTaskByName(executionContext context.Context, registry *taskgraph.Registry, taskName string, environment Environment) error {
	plan, resolutionError := registry.Resolve(taskName)
	if resolutionError != nil {
		return resolutionError
	}
	return planRunner.Run(executionContext, plan, environment)
}

func resolveExitCode(executionError error) int {
	var commandFailed execshell.CommandFailedError
	if errors.As(executionError, &commandFailed) {
		return commandFailed.Result.ExitCode
	}
	return unavailableExitCodeConstant
}
