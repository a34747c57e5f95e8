package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/subssh/internal/execshell"
	"github.com/temirov/subssh/internal/gitrepo"
	"github.com/temirov/subssh/internal/submodules"
	"github.com/temirov/subssh/internal/ui"
	"github.com/temirov/subssh/internal/utils"
	flagutils "github.com/temirov/subssh/internal/utils/flags"
	pathutils "github.com/temirov/subssh/internal/utils/path"
)

const (
	applicationNameConstant                 = "subssh"
	applicationShortDescriptionConstant     = "Switch organization submodules from HTTPS to SSH"
	applicationLongDescriptionConstant      = "subssh reads .gitmodules, and for every submodule hosted under the configured organization it checks whether the SSH remote answers git ls-remote. Reachable submodules get their local submodule.<path>.url switched to SSH; unreachable ones are reported and left alone."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format."
	repositoryFlagNameConstant              = "repository"
	repositoryFlagUsageConstant             = "Repository whose submodules are rewritten (defaults to the current directory)."
	gitmodulesFlagNameConstant              = "gitmodules"
	gitmodulesFlagUsageConstant             = "Submodule declaration file, relative to the repository."
	hostFlagNameConstant                    = "host"
	hostFlagUsageConstant                   = "Git host of the organization."
	ownerFlagNameConstant                   = "owner"
	ownerFlagUsageConstant                  = "Organization or user owning the rewritten submodules."
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagShorthandConstant             = "n"
	dryRunFlagUsageConstant                 = "Check remote access and report planned changes without writing git configuration."
	commonLogLevelConfigKeyConstant         = "common.log_level"
	commonLogFormatConfigKeyConstant        = "common.log_format"
	rewriteRepositoryConfigKeyConstant      = "rewrite.repository"
	rewriteGitmodulesConfigKeyConstant      = "rewrite.gitmodules"
	rewriteHostConfigKeyConstant            = "rewrite.host"
	rewriteOwnerConfigKeyConstant           = "rewrite.owner"
	rewriteDryRunConfigKeyConstant          = "rewrite.dry_run"
	environmentPrefixConstant               = "SUBSSH"
	configurationNameConstant               = "subssh"
	configurationTypeConstant               = "yaml"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationDirectoryNameConstant  = "subssh"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	rewriteCompletedMessageConstant         = "submodule rewrite completed"
	logFieldRepositoryConstant              = "repository"
	logFieldHTTPSPrefixConstant             = "https_prefix"
	logFieldSSHPrefixConstant               = "ssh_prefix"
	logFieldOutcomeCountsConstant           = "outcomes"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	pathExpansionErrorTemplateConstant      = "unable to resolve %s: %w"
	prefixResolutionErrorTemplateConstant   = "unable to build %s prefix: %w"
	executorCreationErrorTemplateConstant   = "unable to create git executor: %w"
	managerCreationErrorTemplateConstant    = "unable to create submodule manager: %w"
	rewriterCreationErrorTemplateConstant   = "unable to create submodule rewriter: %w"
	rewriteErrorTemplateConstant            = "submodule rewrite failed: %w"
	loggerNotInitializedMessageConstant     = "logger not initialized"
)

var (
	logLevelChoices  = []string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)}
	logFormatChoices = []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)}
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common  ApplicationCommonConfiguration  `mapstructure:"common"`
	Rewrite ApplicationRewriteConfiguration `mapstructure:"rewrite"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationRewriteConfiguration selects the repository, the organization, and the write mode.
// Non-empty HTTPSPrefix or SSHPrefix replace the prefix derived from Host and Owner.
type ApplicationRewriteConfiguration struct {
	Repository  string `mapstructure:"repository"`
	Gitmodules  string `mapstructure:"gitmodules"`
	Host        string `mapstructure:"host"`
	Owner       string `mapstructure:"owner"`
	HTTPSPrefix string `mapstructure:"https_prefix"`
	SSHPrefix   string `mapstructure:"ssh_prefix"`
	DryRun      bool   `mapstructure:"dry_run"`
}

// ApplicationDependencies supplies the process boundary of the application. Zero values select the
// operating system: os/exec for git, stdout for notices, stderr for logs.
type ApplicationDependencies struct {
	CommandRunner         execshell.CommandRunner
	Output                io.Writer
	DiagnosticsOutput     io.Writer
	HomeDirectoryProvider pathutils.HomeDirectoryProvider
}

// Application wires the Cobra root command, configuration loader, loggers, and the rewriter.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	homeExpander          *pathutils.HomeExpander
	commandRunner         execshell.CommandRunner
	output                io.Writer
	logger                *zap.Logger
	consoleLogger         *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	flagValues            applicationFlagValues
}

type applicationFlagValues struct {
	logLevel   string
	logFormat  string
	repository string
	gitmodules string
	host       string
	owner      string
	dryRun     bool
}

// NewApplication assembles an application bound to the operating system.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles an application with substituted process boundaries.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	if dependencies.CommandRunner == nil {
		dependencies.CommandRunner = execshell.NewOSCommandRunner()
	}
	if dependencies.Output == nil {
		dependencies.Output = os.Stdout
	}

	homeExpander := pathutils.NewHomeExpanderWithProvider(dependencies.HomeDirectoryProvider)
	embeddedConfiguration, _ := EmbeddedDefaultConfiguration()

	application := &Application{
		configurationLoader: utils.NewConfigurationLoader(
			configurationNameConstant,
			configurationTypeConstant,
			environmentPrefixConstant,
			configurationSearchPaths(),
			embeddedConfiguration,
		),
		loggerFactory: utils.NewLoggerFactoryWithDestination(dependencies.DiagnosticsOutput),
		homeExpander:  homeExpander,
		commandRunner: dependencies.CommandRunner,
		output:        utils.NewFlushingWriter(dependencies.Output),
		logger:        zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration()
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command.Context())
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetOut(application.output)

	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.flagValues.logLevel, logLevelFlagNameConstant, string(utils.LogLevelError), logLevelChoices, logLevelFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.flagValues.logFormat, logFormatFlagNameConstant, string(utils.LogFormatStructured), logFormatChoices, logFormatFlagUsageConstant)

	commandFlags := cobraCommand.Flags()
	commandFlags.StringVar(&application.flagValues.repository, repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	commandFlags.StringVar(&application.flagValues.gitmodules, gitmodulesFlagNameConstant, "", gitmodulesFlagUsageConstant)
	commandFlags.StringVar(&application.flagValues.host, hostFlagNameConstant, "", hostFlagUsageConstant)
	commandFlags.StringVar(&application.flagValues.owner, ownerFlagNameConstant, "", ownerFlagUsageConstant)
	flagutils.AddToggleFlag(commandFlags, &application.flagValues.dryRun, dryRunFlagNameConstant, dryRunFlagShorthandConstant, false, dryRunFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command with the process arguments and flushes the logger.
func (application *Application) Execute() error {
	return application.ExecuteWithArguments(os.Args[1:])
}

// ExecuteWithArguments runs the command with explicit arguments and flushes the logger.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(flagutils.NormalizeToggleArguments(application.rootCommand.Flags(), arguments))
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and runs it with the process arguments.
func Execute() error {
	return NewApplication().Execute()
}

// Configuration exposes the configuration resolved by the last execution.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

func (application *Application) initializeConfiguration() error {
	configurationFilePath, expansionError := application.homeExpander.Expand(application.configurationFilePath)
	if expansionError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, expansionError)
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, application.flagBindings(), &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.configurationMetadata = loadedConfiguration

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) flagBindings() []utils.FlagBinding {
	persistentFlags := application.rootCommand.PersistentFlags()
	commandFlags := application.rootCommand.Flags()
	return []utils.FlagBinding{
		{ConfigurationKey: commonLogLevelConfigKeyConstant, Flag: persistentFlags.Lookup(logLevelFlagNameConstant)},
		{ConfigurationKey: commonLogFormatConfigKeyConstant, Flag: persistentFlags.Lookup(logFormatFlagNameConstant)},
		{ConfigurationKey: rewriteRepositoryConfigKeyConstant, Flag: commandFlags.Lookup(repositoryFlagNameConstant)},
		{ConfigurationKey: rewriteGitmodulesConfigKeyConstant, Flag: commandFlags.Lookup(gitmodulesFlagNameConstant)},
		{ConfigurationKey: rewriteHostConfigKeyConstant, Flag: commandFlags.Lookup(hostFlagNameConstant)},
		{ConfigurationKey: rewriteOwnerConfigKeyConstant, Flag: commandFlags.Lookup(ownerFlagNameConstant)},
		{ConfigurationKey: rewriteDryRunConfigKeyConstant, Flag: commandFlags.Lookup(dryRunFlagNameConstant)},
	}
}

func (application *Application) runRootCommand(executionContext context.Context) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	rewriteConfiguration := application.configuration.Rewrite

	repositoryPath, repositoryExpansionError := application.homeExpander.Expand(rewriteConfiguration.Repository)
	if repositoryExpansionError != nil {
		return fmt.Errorf(pathExpansionErrorTemplateConstant, repositoryFlagNameConstant, repositoryExpansionError)
	}
	gitmodulesPath, gitmodulesExpansionError := application.homeExpander.Expand(rewriteConfiguration.Gitmodules)
	if gitmodulesExpansionError != nil {
		return fmt.Errorf(pathExpansionErrorTemplateConstant, gitmodulesFlagNameConstant, gitmodulesExpansionError)
	}

	organization := gitrepo.Organization{Host: rewriteConfiguration.Host, Owner: rewriteConfiguration.Owner}
	httpsPrefix, httpsPrefixError := resolvePrefix(rewriteConfiguration.HTTPSPrefix, gitrepo.RemoteProtocolHTTPS, organization)
	if httpsPrefixError != nil {
		return httpsPrefixError
	}
	sshPrefix, sshPrefixError := resolvePrefix(rewriteConfiguration.SSHPrefix, gitrepo.RemoteProtocolSSH, organization)
	if sshPrefixError != nil {
		return sshPrefixError
	}

	var commandObserver execshell.CommandEventObserver
	if application.consoleLogger != nil {
		commandObserver = ui.NewConsoleCommandEventLogger(application.consoleLogger)
	}
	gitExecutor, executorError := execshell.NewShellExecutorWithObserver(application.logger, application.commandRunner, commandObserver)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	submoduleManager, managerError := gitrepo.NewSubmoduleManager(gitExecutor, repositoryPath, gitmodulesPath)
	if managerError != nil {
		return fmt.Errorf(managerCreationErrorTemplateConstant, managerError)
	}

	rewriter, rewriterError := submodules.NewRewriter(
		submodules.Dependencies{
			Reader:  submoduleManager,
			Checker: submoduleManager,
			Writer:  submoduleManager,
			Output:  application.output,
			Logger:  application.logger,
		},
		submodules.Options{
			HTTPSPrefix: httpsPrefix,
			SSHPrefix:   sshPrefix,
			DryRun:      rewriteConfiguration.DryRun,
		},
	)
	if rewriterError != nil {
		return fmt.Errorf(rewriterCreationErrorTemplateConstant, rewriterError)
	}

	results, runError := rewriter.Run(executionContext)
	if runError != nil {
		return fmt.Errorf(rewriteErrorTemplateConstant, runError)
	}

	outcomeCounts := map[string]int{}
	for _, result := range results {
		outcomeCounts[string(result.Outcome)]++
	}
	application.logger.Info(
		rewriteCompletedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryPath),
		zap.String(logFieldHTTPSPrefixConstant, httpsPrefix),
		zap.String(logFieldSSHPrefixConstant, sshPrefix),
		zap.Any(logFieldOutcomeCountsConstant, outcomeCounts),
	)

	return nil
}

func resolvePrefix(configuredPrefix string, protocol gitrepo.RemoteProtocol, organization gitrepo.Organization) (string, error) {
	if len(configuredPrefix) > 0 {
		return configuredPrefix, nil
	}
	derivedPrefix, formatError := gitrepo.FormatRemotePrefix(protocol, organization)
	if formatError != nil {
		return "", fmt.Errorf(prefixResolutionErrorTemplateConstant, protocol, formatError)
	}
	return derivedPrefix, nil
}

func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if userConfigurationDirectory, lookupError := os.UserConfigDir(); lookupError == nil {
		searchPaths = append(searchPaths, filepath.Join(userConfigurationDirectory, userConfigurationDirectoryNameConstant))
	}
	return searchPaths
}

func (application *Application) flushLogger() error {
	for _, logger := range []*zap.Logger{application.logger, application.consoleLogger} {
		if syncError := syncLoggerInstance(logger); syncError != nil {
			return syncError
		}
	}
	return nil
}

func syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}
