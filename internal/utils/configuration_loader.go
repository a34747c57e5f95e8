package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
	flagBindingErrorTemplateConstant                = "failed to bind flag --%s to %s: %w"
	missingFlagBindingMessageConstant               = "flag not defined"
)

var errFlagBindingMissingFlag = errors.New(missingFlagBindingMessageConstant)

// FlagBinding ties a command-line flag to a configuration key. An explicitly set flag
// outranks the environment, the configuration file, and the embedded defaults.
type FlagBinding struct {
	ConfigurationKey string
	Flag             *pflag.Flag
}

// ConfigurationLoader layers embedded defaults, a configuration file, environment variables,
// and explicitly set flags into a single configuration structure.
type ConfigurationLoader struct {
	configurationName      string
	configurationType      string
	environmentPrefix      string
	searchPaths            []string
	embeddedConfiguration  []byte
	environmentKeyReplacer *strings.Replacer
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader creates a loader that searches the given paths for configurationName.
// embeddedConfiguration is merged first and therefore defines every recognized key.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string, embeddedConfiguration []byte) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName:      configurationName,
		configurationType:      configurationType,
		environmentPrefix:      environmentPrefix,
		searchPaths:            append([]string(nil), searchPaths...),
		embeddedConfiguration:  append([]byte(nil), embeddedConfiguration...),
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// LoadConfiguration populates targetConfiguration. An empty configurationFilePath searches the
// loader's paths and tolerates a missing file; an explicit path must exist.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, flagBindings []FlagBinding, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.configurationName)
	viperInstance.SetConfigType(loader.configurationType)

	if len(loader.embeddedConfiguration) > 0 {
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.embeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
	}

	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for _, flagBinding := range flagBindings {
		if flagBinding.Flag == nil {
			return LoadedConfiguration{}, fmt.Errorf(flagBindingErrorTemplateConstant, "", flagBinding.ConfigurationKey, errFlagBindingMissingFlag)
		}
		if bindError := viperInstance.BindPFlag(flagBinding.ConfigurationKey, flagBinding.Flag); bindError != nil {
			return LoadedConfiguration{}, fmt.Errorf(flagBindingErrorTemplateConstant, flagBinding.Flag.Name, flagBinding.ConfigurationKey, bindError)
		}
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
