// Package taskgraph holds the task registry and the resolution of named tasks
// into flattened execution plans. Tasks declare ordered steps; a step either
// invokes an external command directly or references another registered task.
package taskgraph

import (
	"fmt"
	"strings"
)

// CommandStep describes a direct external-command invocation.
type CommandStep struct {
	Program   string
	Arguments []string
}

// Step is a tagged variant: exactly one of Run or Task is populated. Run
// invokes an external command; Task inlines another registered task.
type Step struct {
	Run  *CommandStep
	Task string
}

// NewCommandStep builds a step invoking the provided program with arguments.
func NewCommandStep(program string, arguments ...string) Step {
	return Step{Run: &CommandStep{Program: program, Arguments: arguments}}
}

// NewTaskReferenceStep builds a step referencing another registered task.
func NewTaskReferenceStep(taskName string) Step {
	return Step{Task: taskName}
}

// Task pairs a unique name with its ordered steps.
type Task struct {
	Name  string
	Steps []Step
}

// Registry stores task definitions by name. It is populated once at startup
// and read-only afterwards; Register is not safe for concurrent use.
type Registry struct {
	tasksByName      map[string]Task
	orderedTaskNames []string
}

// NewRegistry constructs an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasksByName: map[string]Task{}}
}

// Register adds a task definition. The registry is left unchanged when the
// definition is invalid or the name is already taken.
func (registry *Registry) Register(task Task) error {
	normalizedName := strings.TrimSpace(task.Name)
	if len(normalizedName) == 0 {
		return InvalidTaskDefinitionError{Reason: taskNameMissingMessageConstant}
	}
	if validationError := validateTaskSteps(normalizedName, task.Steps); validationError != nil {
		return validationError
	}
	if _, alreadyRegistered := registry.tasksByName[normalizedName]; alreadyRegistered {
		return DuplicateTaskError{TaskName: normalizedName}
	}

	task.Name = normalizedName
	registry.tasksByName[normalizedName] = task
	registry.orderedTaskNames = append(registry.orderedTaskNames, normalizedName)
	return nil
}

// TaskNames returns the registered task names in registration order.
func (registry *Registry) TaskNames() []string {
	names := make([]string, len(registry.orderedTaskNames))
	copy(names, registry.orderedTaskNames)
	return names
}

// Lookup returns the task registered under the provided name.
func (registry *Registry) Lookup(taskName string) (Task, bool) {
	task, found := registry.tasksByName[strings.TrimSpace(taskName)]
	return task, found
}

func validateTaskSteps(taskName string, steps []Step) error {
	if len(steps) == 0 {
		return InvalidTaskDefinitionError{Reason: fmt.Sprintf(taskStepsMissingMessageTemplateConstant, taskName)}
	}

	for stepIndex := range steps {
		step := steps[stepIndex]
		hasCommand := step.Run != nil
		hasReference := len(strings.TrimSpace(step.Task)) > 0

		switch {
		case hasCommand == hasReference:
			return InvalidTaskDefinitionError{
				Reason: fmt.Sprintf(taskStepVariantInvalidTemplateConstant, taskName, stepIndex),
			}
		case hasCommand && len(strings.TrimSpace(step.Run.Program)) == 0:
			return InvalidTaskDefinitionError{
				Reason: fmt.Sprintf(taskStepProgramMissingTemplateConstant, taskName, stepIndex),
			}
		}
	}

	return nil
}
