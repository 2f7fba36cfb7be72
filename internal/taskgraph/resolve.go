package taskgraph

import "strings"

// CommandInvocation is one fully resolved external-command execution.
type CommandInvocation struct {
	Program   string
	Arguments []string
}

// ExecutionPlan is the flattened, ordered list of command invocations produced
// by resolving a task name.
type ExecutionPlan struct {
	TaskName    string
	Invocations []CommandInvocation
}

// Resolve expands the named task into an execution plan. Task references are
// inlined depth-first in declaration order. The current expansion path is
// tracked so a task revisited on the same path fails with
// CyclicDependencyError instead of recursing unboundedly. Subtrees are not
// memoized across branches: a task referenced from two places contributes its
// commands once per reference.
func (registry *Registry) Resolve(taskName string) (ExecutionPlan, error) {
	normalizedName := strings.TrimSpace(taskName)
	invocations, expansionError := registry.expandTask(normalizedName, nil)
	if expansionError != nil {
		return ExecutionPlan{}, expansionError
	}
	return ExecutionPlan{
		TaskName:    normalizedName,
		Invocations: collapseAdjacentDuplicates(invocations),
	}, nil
}

func (registry *Registry) expandTask(taskName string, expansionPath []string) ([]CommandInvocation, error) {
	for pathIndex := range expansionPath {
		if expansionPath[pathIndex] == taskName {
			return nil, CyclicDependencyError{ExpansionPath: append(append([]string{}, expansionPath...), taskName)}
		}
	}

	task, taskFound := registry.tasksByName[taskName]
	if !taskFound {
		return nil, UnknownTaskError{TaskName: taskName}
	}

	currentPath := append(expansionPath, taskName)
	invocations := make([]CommandInvocation, 0, len(task.Steps))
	for stepIndex := range task.Steps {
		step := task.Steps[stepIndex]
		if step.Run != nil {
			var copiedArguments []string
			if len(step.Run.Arguments) > 0 {
				copiedArguments = append([]string{}, step.Run.Arguments...)
			}
			invocations = append(invocations, CommandInvocation{
				Program:   step.Run.Program,
				Arguments: copiedArguments,
			})
			continue
		}

		referencedInvocations, referenceError := registry.expandTask(strings.TrimSpace(step.Task), currentPath)
		if referenceError != nil {
			return nil, referenceError
		}
		invocations = append(invocations, referencedInvocations...)
	}

	return invocations, nil
}

// collapseAdjacentDuplicates removes invocations that are provably identical
// repeats of their immediate predecessor. Non-adjacent repeats are kept: the
// same command may have different effects later in the plan (formatting in
// place before a subsequent check, for example).
func collapseAdjacentDuplicates(invocations []CommandInvocation) []CommandInvocation {
	if len(invocations) < 2 {
		return invocations
	}

	collapsed := make([]CommandInvocation, 0, len(invocations))
	for invocationIndex := range invocations {
		if invocationIndex > 0 && invocationsEqual(invocations[invocationIndex-1], invocations[invocationIndex]) {
			continue
		}
		collapsed = append(collapsed, invocations[invocationIndex])
	}
	return collapsed
}

func invocationsEqual(first CommandInvocation, second CommandInvocation) bool {
	if first.Program != second.Program {
		return false
	}
	if len(first.Arguments) != len(second.Arguments) {
		return false
	}
	for argumentIndex := range first.Arguments {
		if first.Arguments[argumentIndex] != second.Arguments[argumentIndex] {
			return false
		}
	}
	return true
}
