package cli

import (
	_ "embed"
	"fmt"

	mapstructure "github.com/go-viper/mapstructure/v2"

	"github.com/tyemirov/taskrun/internal/utils"
)

const configurationDecodeErrorTemplateConstant = "unable to decode application configuration: %w"

//go:embed default_config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the built-in configuration content and
// its format. It declares the default task set driving a cargo project.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return embeddedDefaultConfiguration, configurationTypeConstant
}

// ApplicationConfiguration mirrors the configuration file's common section.
type ApplicationConfiguration struct {
	Common CommonConfiguration `mapstructure:"common"`
}

// CommonConfiguration holds settings shared by every task invocation.
type CommonConfiguration struct {
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`
	WorkingDirectory string `mapstructure:"working_directory"`
}

func decodeApplicationConfiguration(loadedConfiguration utils.LoadedConfiguration) (ApplicationConfiguration, error) {
	var configuration ApplicationConfiguration
	if decodeError := mapstructure.Decode(loadedConfiguration.Viper.AllSettings(), &configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(configurationDecodeErrorTemplateConstant, decodeError)
	}
	return configuration, nil
}
