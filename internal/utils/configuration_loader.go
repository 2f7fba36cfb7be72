package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	configurationKeySeparatorConstant         = "."
	environmentKeySeparatorConstant           = "_"
	embeddedConfigurationErrorTemplateConst   = "unable to read embedded configuration: %w"
	explicitConfigurationErrorTemplateConst   = "unable to read configuration file %s: %w"
	discoveredConfigurationErrorTemplateConst = "unable to read discovered configuration file: %w"
)

// LoadedConfiguration exposes the merged configuration state.
type LoadedConfiguration struct {
	Viper                 *viper.Viper
	ConfigurationFilePath string
}

// ConfigurationLoader merges embedded defaults, an optional configuration
// file, and environment variables, in ascending precedence.
type ConfigurationLoader struct {
	configurationName         string
	configurationType         string
	environmentPrefix         string
	searchPaths               []string
	embeddedConfiguration     []byte
	embeddedConfigurationType string
}

// NewConfigurationLoader constructs a loader for the named configuration.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       searchPaths,
	}
}

// SetEmbeddedConfiguration registers default configuration content applied
// before any file or environment values.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	loader.embeddedConfiguration = configurationData
	loader.embeddedConfigurationType = configurationType
}

// LoadConfiguration resolves the effective configuration. An explicit path
// must exist and parse; discovered files are optional.
func (loader *ConfigurationLoader) LoadConfiguration(explicitFilePath string) (LoadedConfiguration, error) {
	viperInstance := viper.New()

	if len(loader.embeddedConfiguration) > 0 {
		viperInstance.SetConfigType(loader.embeddedConfigurationType)
		if embeddedError := viperInstance.ReadConfig(bytes.NewReader(loader.embeddedConfiguration)); embeddedError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationErrorTemplateConst, embeddedError)
		}
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(strings.NewReplacer(configurationKeySeparatorConstant, environmentKeySeparatorConstant))
	viperInstance.AutomaticEnv()

	trimmedExplicitPath := strings.TrimSpace(explicitFilePath)
	if len(trimmedExplicitPath) > 0 {
		viperInstance.SetConfigFile(trimmedExplicitPath)
		if mergeError := viperInstance.MergeInConfig(); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(explicitConfigurationErrorTemplateConst, trimmedExplicitPath, mergeError)
		}
		return LoadedConfiguration{Viper: viperInstance, ConfigurationFilePath: viperInstance.ConfigFileUsed()}, nil
	}

	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)
	for searchPathIndex := range loader.searchPaths {
		viperInstance.AddConfigPath(loader.searchPaths[searchPathIndex])
	}

	if mergeError := viperInstance.MergeInConfig(); mergeError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(mergeError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(discoveredConfigurationErrorTemplateConst, mergeError)
		}
	}

	return LoadedConfiguration{Viper: viperInstance, ConfigurationFilePath: viperInstance.ConfigFileUsed()}, nil
}
