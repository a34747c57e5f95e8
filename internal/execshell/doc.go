// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle events,
// turning non-zero exits into CommandFailedError so callers can tell an
// unreachable remote apart from a missing git binary.
package execshell
