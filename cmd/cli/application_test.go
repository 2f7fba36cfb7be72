package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/taskrun/cmd/cli"
	"github.com/tyemirov/taskrun/internal/execshell"
	"github.com/tyemirov/taskrun/internal/runner"
	"github.com/tyemirov/taskrun/internal/taskgraph"
)

const (
	testConfigurationFileNameConstant = "taskrun.yaml"
	testConfigFlagConstant            = "--config"
	testTrueProgramNameConstant       = "true"
	testFalseProgramNameConstant      = "false"
	testCheckTaskNameConstant         = "check"
	testBuildTaskNameConstant         = "build"
	testUnknownTaskNameConstant       = "deploy"
	testEndToEndConfigurationConstant = `
tasks:
  - task:
      name: check
      steps:
        - run: "true"
  - task:
      name: build
      steps:
        - run: "false"
`
	testReferenceConfigurationConstant = `
tasks:
  - task:
      name: fmt
      steps:
        - run: formatter
          arguments: [--all]
  - task:
      name: lint
      steps:
        - task: fmt
        - run: lint-tool
          arguments: [-D, warnings]
`
	testFailingFirstStepConfiguration = `
tasks:
  - task:
      name: lint
      steps:
        - run: formatter
        - run: lint-tool
`
)

type recordingApplicationRunner struct {
	executedCommands []execshell.ShellCommand
	exitCodes        []int
}

func (applicationRunner *recordingApplicationRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	commandIndex := len(applicationRunner.executedCommands)
	applicationRunner.executedCommands = append(applicationRunner.executedCommands, command)
	exitCode := 0
	if commandIndex < len(applicationRunner.exitCodes) {
		exitCode = applicationRunner.exitCodes[commandIndex]
	}
	return execshell.ExecutionResult{ExitCode: exitCode}, nil
}

func writeConfigurationFile(testInstance *testing.T, content string) string {
	testInstance.Helper()
	configurationFilePath := filepath.Join(testInstance.TempDir(), testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(content), 0o600))
	return configurationFilePath
}

func TestApplicationRunsSuccessfulTaskEndToEnd(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, testEndToEndConfigurationConstant)

	application := cli.NewApplication()
	executionError := application.Execute([]string{testCheckTaskNameConstant, testConfigFlagConstant, configurationFilePath})

	require.NoError(testInstance, executionError)
	require.Equal(testInstance, 0, cli.ExitCode(executionError))
}

func TestApplicationReportsFailingTaskEndToEnd(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, testEndToEndConfigurationConstant)

	application := cli.NewApplication()
	executionError := application.Execute([]string{testBuildTaskNameConstant, testConfigFlagConstant, configurationFilePath})

	var stepError runner.StepFailedError
	require.ErrorAs(testInstance, executionError, &stepError)
	require.Equal(testInstance, 0, stepError.StepIndex)
	require.Equal(testInstance, testFalseProgramNameConstant, stepError.Program)
	require.Equal(testInstance, 1, stepError.ExitCode)
	require.Equal(testInstance, 1, cli.ExitCode(executionError))
}

func TestApplicationRejectsUnknownTask(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, testEndToEndConfigurationConstant)

	application := cli.NewApplication()
	executionError := application.Execute([]string{testUnknownTaskNameConstant, testConfigFlagConstant, configurationFilePath})

	var unknownError taskgraph.UnknownTaskError
	require.ErrorAs(testInstance, executionError, &unknownError)
	require.Equal(testInstance, testUnknownTaskNameConstant, unknownError.TaskName)
	require.Equal(testInstance, 2, cli.ExitCode(executionError))
}

func TestApplicationInlinesTaskReferences(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, testReferenceConfigurationConstant)

	applicationRunner := &recordingApplicationRunner{}
	application := cli.NewApplication()
	application.SetCommandRunner(applicationRunner)

	executionError := application.Execute([]string{"lint", testConfigFlagConstant, configurationFilePath})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, applicationRunner.executedCommands, 2)
	require.Equal(testInstance, "formatter", applicationRunner.executedCommands[0].Program)
	require.Equal(testInstance, []string{"--all"}, applicationRunner.executedCommands[0].Details.Arguments)
	require.Equal(testInstance, "lint-tool", applicationRunner.executedCommands[1].Program)
	require.Equal(testInstance, []string{"-D", "warnings"}, applicationRunner.executedCommands[1].Details.Arguments)
}

func TestApplicationStopsAfterFirstFailingStep(testInstance *testing.T) {
	configurationFilePath := writeConfigurationFile(testInstance, testFailingFirstStepConfiguration)

	applicationRunner := &recordingApplicationRunner{exitCodes: []int{9}}
	application := cli.NewApplication()
	application.SetCommandRunner(applicationRunner)

	executionError := application.Execute([]string{"lint", testConfigFlagConstant, configurationFilePath})

	var stepError runner.StepFailedError
	require.ErrorAs(testInstance, executionError, &stepError)
	require.Equal(testInstance, 0, stepError.StepIndex)
	require.Equal(testInstance, 9, stepError.ExitCode)
	require.Equal(testInstance, 9, cli.ExitCode(executionError))
	require.Len(testInstance, applicationRunner.executedCommands, 1)
}

func changeWorkingDirectory(testInstance *testing.T, directoryPath string) {
	testInstance.Helper()
	previousWorkingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)
	require.NoError(testInstance, os.Chdir(directoryPath))
	testInstance.Cleanup(func() {
		require.NoError(testInstance, os.Chdir(previousWorkingDirectory))
	})
}

func TestApplicationListsEmbeddedDefaultTasks(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())

	var outputBuffer bytes.Buffer
	application := cli.NewApplication()
	application.SetOutputWriters(&outputBuffer, &outputBuffer)

	executionError := application.Execute([]string{"list"})
	require.NoError(testInstance, executionError)

	listedTasks := strings.Fields(outputBuffer.String())
	require.Equal(testInstance, []string{"lint", "check", "test", "build", "build-release"}, listedTasks)
}

func TestApplicationInitializesLocalConfiguration(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	changeWorkingDirectory(testInstance, temporaryDirectory)

	var outputBuffer bytes.Buffer
	application := cli.NewApplication()
	application.SetOutputWriters(&outputBuffer, &outputBuffer)

	executionError := application.Execute([]string{"--init"})
	require.NoError(testInstance, executionError)

	writtenFilePath := filepath.Join(temporaryDirectory, testConfigurationFileNameConstant)
	require.FileExists(testInstance, writtenFilePath)

	repeatApplication := cli.NewApplication()
	repeatError := repeatApplication.Execute([]string{"--init"})
	require.Error(testInstance, repeatError)

	forcedApplication := cli.NewApplication()
	forcedApplication.SetOutputWriters(&outputBuffer, &outputBuffer)
	forcedError := forcedApplication.Execute([]string{"--init", "--force"})
	require.NoError(testInstance, forcedError)
}
