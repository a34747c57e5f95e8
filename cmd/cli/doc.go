// Package cli builds the subssh command: a single Cobra root command that loads
// configuration, constructs loggers, and runs the submodule rewriter against the
// repository in the working directory.
package cli
