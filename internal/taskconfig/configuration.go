// Package taskconfig loads declarative task definitions from YAML and turns
// them into a task registry.
package taskconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/taskrun/internal/taskgraph"
)

const (
	configurationLoadErrorTemplateConstant    = "failed to load task configuration: %w"
	configurationParseErrorTemplateConstant   = "failed to parse task configuration: %w"
	configurationPathRequiredMessageConstant  = "task configuration path must be provided"
	configurationEmptyTasksMessageConstant    = "task configuration must define at least one task"
	configurationTaskSequenceMessageConstant  = "tasks block must be defined as a sequence of task entries"
	configurationTaskNameMissingConstant      = "task entry missing name"
	stepArgumentsDescriptorTemplateConstant   = "task %q step arguments"
	stepArgumentEntriesMessageTemplateConst   = "%s entries must be strings"
	stepArgumentsTypeMessageTemplateConstant  = "%s must be a string or list of strings"
	registryConstructionErrorTemplateConstant = "failed to build task registry: %w"
)

// ErrNoTasksDeclared indicates the configuration content held no task entries.
var ErrNoTasksDeclared = errors.New(configurationEmptyTasksMessageConstant)

// Configuration describes the declared tasks loaded from YAML.
type Configuration struct {
	Tasks []TaskConfiguration
}

type configurationFile struct {
	Tasks []taskWrapper `yaml:"tasks"`
}

type taskWrapper struct {
	Task TaskConfiguration `yaml:"task"`
}

// TaskConfiguration associates a task name with its declared steps.
type TaskConfiguration struct {
	Name  string              `yaml:"name"`
	Steps []StepConfiguration `yaml:"steps"`
}

// StepConfiguration declares one step: either an external command (run plus
// optional arguments) or a reference to another task.
type StepConfiguration struct {
	Run       string `yaml:"run"`
	Arguments any    `yaml:"arguments"`
	Task      string `yaml:"task"`
}

// LoadConfiguration reads the task definitions from disk and performs basic validation.
func LoadConfiguration(filePath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Configuration{}, errors.New(configurationPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Configuration{}, fmt.Errorf(configurationLoadErrorTemplateConstant, readError)
	}

	return ParseConfiguration(contentBytes)
}

// ParseConfiguration decodes task definitions from raw YAML content.
func ParseConfiguration(contentBytes []byte) (Configuration, error) {
	var parsedFile configurationFile
	if unmarshalError := yaml.Unmarshal(contentBytes, &parsedFile); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, unmarshalError)
	}

	if sequenceError := ensureTaskSequence(contentBytes); sequenceError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, sequenceError)
	}

	configuration := Configuration{Tasks: make([]TaskConfiguration, 0, len(parsedFile.Tasks))}
	for taskIndex := range parsedFile.Tasks {
		configuration.Tasks = append(configuration.Tasks, parsedFile.Tasks[taskIndex].Task)
	}

	if len(configuration.Tasks) == 0 {
		return Configuration{}, ErrNoTasksDeclared
	}

	for taskIndex := range configuration.Tasks {
		configuration.Tasks[taskIndex].Name = strings.TrimSpace(configuration.Tasks[taskIndex].Name)
		if len(configuration.Tasks[taskIndex].Name) == 0 {
			return Configuration{}, errors.New(configurationTaskNameMissingConstant)
		}
	}

	return configuration, nil
}

// BuildRegistry converts the configuration into a populated task registry.
// Structural violations (duplicate names, empty steps, steps declaring both
// or neither variant) surface as the registry's typed errors.
func BuildRegistry(configuration Configuration) (*taskgraph.Registry, error) {
	registry := taskgraph.NewRegistry()

	for taskIndex := range configuration.Tasks {
		taskConfiguration := configuration.Tasks[taskIndex]

		steps := make([]taskgraph.Step, 0, len(taskConfiguration.Steps))
		for stepIndex := range taskConfiguration.Steps {
			stepConfiguration := taskConfiguration.Steps[stepIndex]

			step := taskgraph.Step{Task: strings.TrimSpace(stepConfiguration.Task)}
			if len(strings.TrimSpace(stepConfiguration.Run)) > 0 {
				argumentDescriptor := fmt.Sprintf(stepArgumentsDescriptorTemplateConstant, taskConfiguration.Name)
				arguments, argumentError := parseStepArguments(stepConfiguration.Arguments, argumentDescriptor)
				if argumentError != nil {
					return nil, fmt.Errorf(registryConstructionErrorTemplateConstant, argumentError)
				}
				step.Run = &taskgraph.CommandStep{Program: strings.TrimSpace(stepConfiguration.Run), Arguments: arguments}
			}
			steps = append(steps, step)
		}

		if registrationError := registry.Register(taskgraph.Task{Name: taskConfiguration.Name, Steps: steps}); registrationError != nil {
			return nil, registrationError
		}
	}

	return registry, nil
}

func ensureTaskSequence(contentBytes []byte) error {
	var taskWrapperNode struct {
		Tasks yaml.Node `yaml:"tasks"`
	}

	if unmarshalError := yaml.Unmarshal(contentBytes, &taskWrapperNode); unmarshalError != nil {
		return unmarshalError
	}

	if taskWrapperNode.Tasks.Kind == 0 {
		return nil
	}

	switch taskWrapperNode.Tasks.Kind {
	case yaml.SequenceNode:
		return nil
	default:
		return errors.New(configurationTaskSequenceMessageConstant)
	}
}

func parseStepArguments(raw any, descriptor string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	switch typed := raw.(type) {
	case []string:
		return sanitizeArguments(typed), nil
	case []any:
		values := make([]string, 0, len(typed))
		for entryIndex := range typed {
			value, ok := typed[entryIndex].(string)
			if !ok {
				return nil, fmt.Errorf(stepArgumentEntriesMessageTemplateConst, descriptor)
			}
			values = append(values, value)
		}
		return sanitizeArguments(values), nil
	case string:
		return sanitizeArguments(strings.Fields(typed)), nil
	default:
		return nil, fmt.Errorf(stepArgumentsTypeMessageTemplateConstant, descriptor)
	}
}

func sanitizeArguments(arguments []string) []string {
	sanitized := make([]string, 0, len(arguments))
	for argumentIndex := range arguments {
		argument := strings.TrimSpace(arguments[argumentIndex])
		if argument == "" {
			continue
		}
		sanitized = append(sanitized, argument)
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
