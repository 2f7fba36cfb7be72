// Package cli assembles the taskrun command-line application: configuration
// loading, logger construction, and one subcommand per registered task.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tyemirov/taskrun/internal/execshell"
	"github.com/tyemirov/taskrun/internal/runner"
	"github.com/tyemirov/taskrun/internal/taskconfig"
	"github.com/tyemirov/taskrun/internal/taskgraph"
	"github.com/tyemirov/taskrun/internal/utils"
	"github.com/tyemirov/taskrun/internal/version"
)

const (
	applicationNameConstant                  = "taskrun"
	applicationShortDescriptionConstant      = "Declarative task runner for external toolchains"
	applicationLongDescriptionConstant       = "taskrun resolves named tasks declared in a configuration file into ordered external-command invocations and executes them, stopping at the first failure."
	configFileFlagNameConstant               = "config"
	configFileFlagUsageConstant              = "Optional path to a configuration file (YAML)."
	logLevelFlagNameConstant                 = "log-level"
	logLevelFlagUsageConstant                = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant                = "log-format"
	logFormatFlagUsageConstant               = "Override the configured log format (structured or console)."
	initializationFlagNameConstant           = "init"
	initializationFlagUsageConstant          = "Write the embedded default configuration to LOCAL (./taskrun.yaml) or user ($XDG_CONFIG_HOME/taskrun/taskrun.yaml, falling back to $HOME/.taskrun/taskrun.yaml)."
	initializationForceFlagNameConstant      = "force"
	initializationForceFlagUsageConstant     = "Overwrite an existing configuration file when initializing."
	initializationScopeLocalConstant         = "local"
	initializationScopeUserConstant          = "user"
	listCommandUseNameConstant               = "list"
	listCommandShortDescriptionConstant      = "List registered task names"
	versionCommandUseNameConstant            = "version"
	versionCommandShortDescriptionConstant   = "Print the application version"
	taskCommandShortDescriptionTemplateConst = "Run the %s task"
	environmentPrefixConstant                = "TASKRUN"
	configurationNameConstant                = "taskrun"
	configurationTypeConstant                = "yaml"
	userConfigurationDirectoryNameConstant   = ".taskrun"
	xdgConfigHomeEnvironmentVariableConstant = "XDG_CONFIG_HOME"
	defaultConfigurationSearchPathConstant   = "."
	configurationLoadErrorTemplateConstant   = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant      = "unable to create logger: %w"
	taskConfigurationErrorTemplateConstant   = "unable to load task definitions: %w"
	commonLogLevelConfigKeyConstant          = "common.log_level"
	commonLogFormatConfigKeyConstant         = "common.log_format"
)

// Application wires configuration, logging, the task registry, and the cobra
// command tree.
type Application struct {
	loggerFactory         utils.LoggerFactory
	configurationLoader   *utils.ConfigurationLoader
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	registry              *taskgraph.Registry
	commandRunner         execshell.CommandRunner
	outputWriter          io.Writer
	errorWriter           io.Writer
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	initializationScope   string
	initializationForced  bool
}

// NewApplication constructs an application with production collaborators.
func NewApplication() *Application {
	application := &Application{
		loggerFactory: utils.NewLoggerFactory(),
		logger:        zap.NewNop(),
		commandRunner: execshell.NewOSCommandRunner(),
	}

	application.configurationLoader = utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		resolveConfigurationSearchPaths(),
	)
	embeddedConfigurationData, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	application.configurationLoader.SetEmbeddedConfiguration(embeddedConfigurationData, embeddedConfigurationType)

	return application
}

// SetCommandRunner replaces the command runner used for task steps. Intended
// for tests substituting a controlled runner.
func (application *Application) SetCommandRunner(commandRunner execshell.CommandRunner) {
	application.commandRunner = commandRunner
}

// SetOutputWriters redirects command output and error streams. Intended for
// tests capturing CLI output.
func (application *Application) SetOutputWriters(outputWriter io.Writer, errorWriter io.Writer) {
	application.outputWriter = outputWriter
	application.errorWriter = errorWriter
}

// Execute runs the application against os.Args.
func Execute() error {
	return NewApplication().Execute(os.Args[1:])
}

// Execute loads configuration, builds the command tree, and dispatches the
// provided arguments.
func (application *Application) Execute(arguments []string) error {
	application.preScanFlags(arguments)

	loadedConfiguration, configurationError := application.configurationLoader.LoadConfiguration(application.configurationFilePath)
	if configurationError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, configurationError)
	}
	application.applyLoggingOverrides(loadedConfiguration)

	decodedConfiguration, decodeError := decodeApplicationConfiguration(loadedConfiguration)
	if decodeError != nil {
		return decodeError
	}
	application.configuration = decodedConfiguration

	logger, loggerError := application.loggerFactory.CreateLogger(
		utils.LogLevel(decodedConfiguration.Common.LogLevel),
		utils.LogFormat(decodedConfiguration.Common.LogFormat),
	)
	if loggerError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerError)
	}
	application.logger = logger
	defer func() {
		_ = application.logger.Sync()
	}()

	registry, registryError := application.buildTaskRegistry(loadedConfiguration.ConfigurationFilePath)
	if registryError != nil {
		return registryError
	}
	application.registry = registry

	rootCommand := application.buildRootCommand()
	rootCommand.SetArgs(arguments)
	return rootCommand.ExecuteContext(context.Background())
}

// preScanFlags extracts the flags needed before the cobra tree can exist: the
// task subcommands depend on the configuration, which depends on --config and
// the logging overrides. Unknown flags are left for cobra to validate.
func (application *Application) preScanFlags(arguments []string) {
	preScanFlagSet := pflag.NewFlagSet(applicationNameConstant, pflag.ContinueOnError)
	preScanFlagSet.ParseErrorsWhitelist.UnknownFlags = true
	preScanFlagSet.Usage = func() {}
	preScanFlagSet.SetOutput(nopWriter{})

	configurationFilePath := preScanFlagSet.String(configFileFlagNameConstant, "", configFileFlagUsageConstant)
	logLevelValue := preScanFlagSet.String(logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	logFormatValue := preScanFlagSet.String(logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	_ = preScanFlagSet.Parse(arguments)

	application.configurationFilePath = strings.TrimSpace(*configurationFilePath)
	application.logLevelFlagValue = strings.TrimSpace(*logLevelValue)
	application.logFormatFlagValue = strings.TrimSpace(*logFormatValue)
}

func (application *Application) applyLoggingOverrides(loadedConfiguration utils.LoadedConfiguration) {
	if len(application.logLevelFlagValue) > 0 {
		loadedConfiguration.Viper.Set(commonLogLevelConfigKeyConstant, application.logLevelFlagValue)
	}
	if len(application.logFormatFlagValue) > 0 {
		loadedConfiguration.Viper.Set(commonLogFormatConfigKeyConstant, application.logFormatFlagValue)
	}
}

// buildTaskRegistry reads task definitions from the discovered configuration
// file, falling back to the embedded defaults when no file declares tasks.
func (application *Application) buildTaskRegistry(configurationFilePath string) (*taskgraph.Registry, error) {
	taskConfiguration, taskConfigurationError := application.loadTaskConfiguration(configurationFilePath)
	if taskConfigurationError != nil {
		return nil, fmt.Errorf(taskConfigurationErrorTemplateConstant, taskConfigurationError)
	}

	registry, registryError := taskconfig.BuildRegistry(taskConfiguration)
	if registryError != nil {
		return nil, fmt.Errorf(taskConfigurationErrorTemplateConstant, registryError)
	}
	return registry, nil
}

func (application *Application) loadTaskConfiguration(configurationFilePath string) (taskconfig.Configuration, error) {
	if len(strings.TrimSpace(configurationFilePath)) > 0 {
		taskConfiguration, loadError := taskconfig.LoadConfiguration(configurationFilePath)
		if loadError == nil {
			return taskConfiguration, nil
		}
		if !errors.Is(loadError, taskconfig.ErrNoTasksDeclared) {
			return taskconfig.Configuration{}, loadError
		}
	}

	embeddedConfigurationData, _ := EmbeddedDefaultConfiguration()
	return taskconfig.ParseConfiguration(embeddedConfigurationData)
}

func (application *Application) buildRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	rootCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, application.configurationFilePath, configFileFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, application.logLevelFlagValue, logLevelFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, application.logFormatFlagValue, logFormatFlagUsageConstant)
	rootCommand.Flags().StringVar(&application.initializationScope, initializationFlagNameConstant, initializationScopeLocalConstant, initializationFlagUsageConstant)
	rootCommand.Flags().BoolVar(&application.initializationForced, initializationForceFlagNameConstant, false, initializationForceFlagUsageConstant)
	if initializationFlag := rootCommand.Flags().Lookup(initializationFlagNameConstant); initializationFlag != nil {
		initializationFlag.NoOptDefVal = initializationScopeLocalConstant
	}

	if application.outputWriter != nil {
		rootCommand.SetOut(application.outputWriter)
	}
	if application.errorWriter != nil {
		rootCommand.SetErr(application.errorWriter)
	}

	rootCommand.AddCommand(application.buildListCommand())
	rootCommand.AddCommand(buildVersionCommand())
	for _, taskName := range application.registry.TaskNames() {
		rootCommand.AddCommand(application.buildTaskCommand(taskName))
	}

	return rootCommand
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			fmt.Fprintln(command.OutOrStdout(), version.NewDetector(nil).Version())
			return nil
		},
	}
}

// runRootCommand handles --init and reports unmatched positional arguments as
// unknown tasks; with no arguments it prints usage.
func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if command.Flags().Changed(initializationFlagNameConstant) {
		return application.initializeConfigurationFile(command)
	}
	if len(arguments) > 0 {
		return taskgraph.UnknownTaskError{TaskName: arguments[0]}
	}
	return command.Help()
}

func (application *Application) buildListCommand() *cobra.Command {
	return &cobra.Command{
		Use:           listCommandUseNameConstant,
		Short:         listCommandShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			for _, taskName := range application.registry.TaskNames() {
				fmt.Fprintln(command.OutOrStdout(), taskName)
			}
			return nil
		},
	}
}

func (application *Application) buildTaskCommand(taskName string) *cobra.Command {
	return &cobra.Command{
		Use:           taskName,
		Short:         fmt.Sprintf(taskCommandShortDescriptionTemplateConst, taskName),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runTask(command.Context(), taskName)
		},
	}
}

func (application *Application) runTask(executionContext context.Context, taskName string) error {
	shellExecutor, executorError := execshell.NewShellExecutor(application.logger, application.commandRunner)
	if executorError != nil {
		return executorError
	}

	planRunner, runnerError := runner.NewPlanRunner(application.logger, shellExecutor)
	if runnerError != nil {
		return runnerError
	}

	environment := runner.Environment{
		WorkingDirectory: application.configuration.Common.WorkingDirectory,
	}
	return planRunner.RunTaskByName(executionContext, application.registry, taskName, environment)
}

func resolveConfigurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}

	xdgConfigHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentVariableConstant))
	if len(xdgConfigHome) > 0 {
		searchPaths = append(searchPaths, filepath.Join(xdgConfigHome, configurationNameConstant))
	}

	homeDirectory, homeError := os.UserHomeDir()
	if homeError == nil && len(strings.TrimSpace(homeDirectory)) > 0 {
		searchPaths = append(searchPaths, filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant))
	}

	return searchPaths
}

type nopWriter struct{}

func (nopWriter) Write(data []byte) (int, error) {
	return len(data), nil
}
