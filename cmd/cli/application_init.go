package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	initializationUnsupportedScopeTemplateConstant   = "unsupported initialization scope %q"
	initializationWorkingDirectoryErrorTemplateConst = "unable to determine working directory: %w"
	initializationHomeDirectoryErrorTemplateConstant = "unable to determine user home directory: %w"
	initializationHomeDirectoryEmptyErrorConstant    = "user home directory is empty"
	initializationDirectoryErrorTemplateConstant     = "unable to ensure configuration directory %s: %w"
	initializationExistingFileTemplateConstant       = "configuration file already exists at %s (use --force to overwrite)"
	initializationWriteErrorTemplateConstant         = "unable to write configuration file %s: %w"
	initializationSuccessTemplateConstant            = "configuration file created at %s\n"
	configurationFileNameConstant                    = configurationNameConstant + "." + configurationTypeConstant
	configurationDirectoryPermissionConstant         = 0o755
	configurationFilePermissionConstant              = 0o600
)

// initializeConfigurationFile writes the embedded default configuration to the
// requested scope: the working directory or the user configuration directory.
func (application *Application) initializeConfigurationFile(command *cobra.Command) error {
	targetFilePath, targetError := application.resolveInitializationTarget()
	if targetError != nil {
		return targetError
	}

	targetDirectory := filepath.Dir(targetFilePath)
	if directoryError := os.MkdirAll(targetDirectory, configurationDirectoryPermissionConstant); directoryError != nil {
		return fmt.Errorf(initializationDirectoryErrorTemplateConstant, targetDirectory, directoryError)
	}

	if !application.initializationForced {
		if _, statError := os.Stat(targetFilePath); statError == nil {
			return fmt.Errorf(initializationExistingFileTemplateConstant, targetFilePath)
		}
	}

	embeddedConfigurationData, _ := EmbeddedDefaultConfiguration()
	if writeError := os.WriteFile(targetFilePath, embeddedConfigurationData, configurationFilePermissionConstant); writeError != nil {
		return fmt.Errorf(initializationWriteErrorTemplateConstant, targetFilePath, writeError)
	}

	fmt.Fprintf(command.OutOrStdout(), initializationSuccessTemplateConstant, targetFilePath)
	return nil
}

func (application *Application) resolveInitializationTarget() (string, error) {
	scope := strings.TrimSpace(application.initializationScope)

	switch scope {
	case initializationScopeLocalConstant:
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return "", fmt.Errorf(initializationWorkingDirectoryErrorTemplateConst, workingDirectoryError)
		}
		return filepath.Join(workingDirectory, configurationFileNameConstant), nil
	case initializationScopeUserConstant:
		xdgConfigHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentVariableConstant))
		if len(xdgConfigHome) > 0 {
			return filepath.Join(xdgConfigHome, configurationNameConstant, configurationFileNameConstant), nil
		}
		homeDirectory, homeDirectoryError := os.UserHomeDir()
		if homeDirectoryError != nil {
			return "", fmt.Errorf(initializationHomeDirectoryErrorTemplateConstant, homeDirectoryError)
		}
		if len(strings.TrimSpace(homeDirectory)) == 0 {
			return "", errors.New(initializationHomeDirectoryEmptyErrorConstant)
		}
		return filepath.Join(homeDirectory, userConfigurationDirectoryNameConstant, configurationFileNameConstant), nil
	default:
		return "", fmt.Errorf(initializationUnsupportedScopeTemplateConstant, scope)
	}
}
