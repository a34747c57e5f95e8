// Package utils holds the configuration and logging plumbing shared by the CLI.
//
// ConfigurationLoader layers embedded defaults, configuration files, prefixed
// environment variables and explicit flags through Viper. LoggerFactory builds
// the zap loggers used for diagnostics and console narration.
package utils
