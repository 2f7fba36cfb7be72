package taskgraph

import (
	"fmt"
	"strings"
)

const (
	duplicateTaskErrorTemplateConstant        = "task %q is already registered"
	unknownTaskErrorTemplateConstant          = "task %q is not registered"
	cyclicDependencyErrorTemplateConstant     = "task dependency cycle detected: %s"
	cyclicDependencyPathSeparatorConstant     = " -> "
	taskNameMissingMessageConstant            = "task name must be provided"
	taskStepVariantInvalidTemplateConstant    = "task %q step %d must set exactly one of a command or a task reference"
	taskStepProgramMissingTemplateConstant    = "task %q step %d command program must be provided"
	taskStepsMissingMessageTemplateConstant   = "task %q must declare at least one step"
	invalidTaskDefinitionMessageTemplateConst = "invalid task definition: %s"
)

// DuplicateTaskError reports a registration attempt reusing an existing task name.
type DuplicateTaskError struct {
	TaskName string
}

// Error describes the duplicate registration.
func (duplicateError DuplicateTaskError) Error() string {
	return fmt.Sprintf(duplicateTaskErrorTemplateConstant, duplicateError.TaskName)
}

// UnknownTaskError reports resolution of a task name that was never registered.
type UnknownTaskError struct {
	TaskName string
}

// Error describes the missing task.
func (unknownError UnknownTaskError) Error() string {
	return fmt.Sprintf(unknownTaskErrorTemplateConstant, unknownError.TaskName)
}

// CyclicDependencyError reports a task reference chain that revisits a task
// already on the current expansion path.
type CyclicDependencyError struct {
	ExpansionPath []string
}

// Error renders the offending expansion path in order.
func (cycleError CyclicDependencyError) Error() string {
	return fmt.Sprintf(
		cyclicDependencyErrorTemplateConstant,
		strings.Join(cycleError.ExpansionPath, cyclicDependencyPathSeparatorConstant),
	)
}

// InvalidTaskDefinitionError reports a structurally invalid task handed to the registry.
type InvalidTaskDefinitionError struct {
	Reason string
}

// Error describes why the definition was rejected.
func (definitionError InvalidTaskDefinitionError) Error() string {
	return fmt.Sprintf(invalidTaskDefinitionMessageTemplateConst, definitionError.Reason)
}
