package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/temirov/subssh/internal/utils"
)

const (
	testEnvironmentPrefixConstant      = "TESTSUBSSH"
	testConfigurationNameConstant      = "subssh"
	testConfigurationTypeConstant      = "yaml"
	testConfigFileNameConstant         = "subssh.yaml"
	testEmbeddedConfigurationConstant  = "common:\n  log_level: info\nrewrite:\n  owner: TSUSAKA-ucl\n  dry_run: false\n"
	testFileConfigurationConstant      = "common:\n  log_level: warn\nrewrite:\n  owner: file-owner\n"
	testOwnerFlagNameConstant          = "owner"
	testOwnerConfigurationKeyConstant  = "rewrite.owner"
	testDryRunFlagNameConstant         = "dry-run"
	testDryRunConfigurationKeyConstant = "rewrite.dry_run"
	testLogLevelEnvironmentConstant    = "TESTSUBSSH_COMMON_LOG_LEVEL"
	testOwnerEnvironmentConstant       = "TESTSUBSSH_REWRITE_OWNER"
)

type configurationFixture struct {
	Common  configurationCommonFixture  `mapstructure:"common"`
	Rewrite configurationRewriteFixture `mapstructure:"rewrite"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationRewriteFixture struct {
	Owner  string `mapstructure:"owner"`
	DryRun bool   `mapstructure:"dry_run"`
}

func TestConfigurationLoaderLayering(testInstance *testing.T) {
	testCases := []struct {
		name             string
		writeFile        bool
		environment      map[string]string
		flagArguments    []string
		expectedLogLevel string
		expectedOwner    string
		expectedDryRun   bool
		expectFileUsed   bool
	}{
		{
			name:             "embedded_defaults",
			expectedLogLevel: "info",
			expectedOwner:    "TSUSAKA-ucl",
		},
		{
			name:             "file_overrides_embedded",
			writeFile:        true,
			expectedLogLevel: "warn",
			expectedOwner:    "file-owner",
			expectFileUsed:   true,
		},
		{
			name:             "environment_overrides_file",
			writeFile:        true,
			environment:      map[string]string{testLogLevelEnvironmentConstant: "error", testOwnerEnvironmentConstant: "env-owner"},
			expectedLogLevel: "error",
			expectedOwner:    "env-owner",
			expectFileUsed:   true,
		},
		{
			name:             "explicit_flag_overrides_environment",
			writeFile:        true,
			environment:      map[string]string{testOwnerEnvironmentConstant: "env-owner"},
			flagArguments:    []string{"--owner", "flag-owner", "--dry-run"},
			expectedLogLevel: "warn",
			expectedOwner:    "flag-owner",
			expectedDryRun:   true,
			expectFileUsed:   true,
		},
		{
			name:             "unchanged_flag_keeps_lower_layers",
			flagArguments:    []string{},
			expectedLogLevel: "info",
			expectedOwner:    "TSUSAKA-ucl",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			searchDirectory := testInstance.TempDir()
			if testCase.writeFile {
				writeError := os.WriteFile(filepath.Join(searchDirectory, testConfigFileNameConstant), []byte(testFileConfigurationConstant), 0o600)
				require.NoError(testInstance, writeError)
			}
			for environmentKey, environmentValue := range testCase.environment {
				testInstance.Setenv(environmentKey, environmentValue)
			}

			flagSet := pflag.NewFlagSet(testCase.name, pflag.ContinueOnError)
			flagSet.String(testOwnerFlagNameConstant, "", "owner")
			flagSet.Bool(testDryRunFlagNameConstant, false, "dry run")
			require.NoError(testInstance, flagSet.Parse(testCase.flagArguments))

			loader := utils.NewConfigurationLoader(
				testConfigurationNameConstant,
				testConfigurationTypeConstant,
				testEnvironmentPrefixConstant,
				[]string{searchDirectory},
				[]byte(testEmbeddedConfigurationConstant),
			)

			var configuration configurationFixture
			loadedConfiguration, loadError := loader.LoadConfiguration("", []utils.FlagBinding{
				{ConfigurationKey: testOwnerConfigurationKeyConstant, Flag: flagSet.Lookup(testOwnerFlagNameConstant)},
				{ConfigurationKey: testDryRunConfigurationKeyConstant, Flag: flagSet.Lookup(testDryRunFlagNameConstant)},
			}, &configuration)
			require.NoError(testInstance, loadError)

			require.Equal(testInstance, testCase.expectedLogLevel, configuration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedOwner, configuration.Rewrite.Owner)
			require.Equal(testInstance, testCase.expectedDryRun, configuration.Rewrite.DryRun)
			if testCase.expectFileUsed {
				require.Equal(testInstance, filepath.Join(searchDirectory, testConfigFileNameConstant), loadedConfiguration.ConfigFileUsed)
			} else {
				require.Empty(testInstance, loadedConfiguration.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderExplicitFile(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	explicitPath := filepath.Join(configurationDirectory, "custom.yaml")
	require.NoError(testInstance, os.WriteFile(explicitPath, []byte(testFileConfigurationConstant), 0o600))

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil, []byte(testEmbeddedConfigurationConstant))

	var configuration configurationFixture
	loadedConfiguration, loadError := loader.LoadConfiguration(explicitPath, nil, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, explicitPath, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "file-owner", configuration.Rewrite.Owner)

	_, missingError := loader.LoadConfiguration(filepath.Join(configurationDirectory, "missing.yaml"), nil, &configuration)
	require.Error(testInstance, missingError)
}

func TestConfigurationLoaderRejectsMalformedInput(testInstance *testing.T) {
	testCases := []struct {
		name     string
		embedded string
		flags    []utils.FlagBinding
	}{
		{name: "malformed_embedded_configuration", embedded: "common: [unterminated"},
		{name: "binding_without_flag", embedded: testEmbeddedConfigurationConstant, flags: []utils.FlagBinding{{ConfigurationKey: testOwnerConfigurationKeyConstant}}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil, []byte(testCase.embedded))
			var configuration configurationFixture
			_, loadError := loader.LoadConfiguration("", testCase.flags, &configuration)
			require.Error(testInstance, loadError)
		})
	}
}
