package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/subssh/internal/execshell"
)

const (
	gitConfigSubcommandConstant          = "config"
	gitConfigFileFlagConstant            = "--file"
	gitConfigNullFlagConstant            = "--null"
	gitConfigListFlagConstant            = "--list"
	gitLSRemoteSubcommandConstant        = "ls-remote"
	submoduleSectionPrefixConstant       = "submodule."
	submoduleKeySeparatorConstant        = "."
	submodulePathVariableConstant        = "path"
	submoduleURLVariableConstant         = "url"
	submoduleURLKeyTemplateConstant      = "submodule.%s.url"
	configurationRecordSeparatorConstant = "\x00"
	configurationValueSeparatorConstant  = "\n"
	gitExecutorMissingMessageConstant    = "git executor not configured"
	missingFieldMessageTemplateConstant  = "missing %s"
	declarationErrorTemplateConstant     = "submodule %q in %s: %s"
	readSubmodulesErrorTemplateConstant  = "unable to read %s: %w"
	remoteAccessErrorTemplateConstant    = "unable to check %s: %w"
	setSubmoduleURLErrorTemplateConstant = "unable to set %s: %w"
	defaultGitmodulesFileNameConstant    = ".gitmodules"
	gitTerminalPromptVariableConstant    = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant    = "0"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// GitExecutor exposes the subset of shell execution used by SubmoduleManager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SubmoduleEntry is one declared submodule: its subsection name, checkout path, and remote URL.
type SubmoduleEntry struct {
	Name string
	Path string
	URL  string
}

// SubmoduleDeclarationError reports a .gitmodules section lacking a required field.
type SubmoduleDeclarationError struct {
	Name    string
	Source  string
	Message string
}

// Error describes the malformed declaration.
func (declarationError SubmoduleDeclarationError) Error() string {
	return fmt.Sprintf(declarationErrorTemplateConstant, declarationError.Name, declarationError.Source, declarationError.Message)
}

// SubmoduleManager reads and updates submodule configuration of one repository through git.
type SubmoduleManager struct {
	executor       GitExecutor
	repositoryPath string
	gitmodulesPath string
}

// NewSubmoduleManager constructs a manager for the repository at repositoryPath.
// An empty gitmodulesPath selects .gitmodules; relative paths resolve against repositoryPath.
func NewSubmoduleManager(executor GitExecutor, repositoryPath string, gitmodulesPath string) (*SubmoduleManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	trimmedGitmodulesPath := strings.TrimSpace(gitmodulesPath)
	if len(trimmedGitmodulesPath) == 0 {
		trimmedGitmodulesPath = defaultGitmodulesFileNameConstant
	}
	return &SubmoduleManager{
		executor:       executor,
		repositoryPath: strings.TrimSpace(repositoryPath),
		gitmodulesPath: trimmedGitmodulesPath,
	}, nil
}

// ReadEntries lists the declared submodules in file order.
func (manager *SubmoduleManager) ReadEntries(executionContext context.Context) ([]SubmoduleEntry, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitConfigSubcommandConstant, gitConfigFileFlagConstant, manager.gitmodulesPath, gitConfigNullFlagConstant, gitConfigListFlagConstant},
		WorkingDirectory: manager.repositoryPath,
	})
	if executionError != nil {
		return nil, fmt.Errorf(readSubmodulesErrorTemplateConstant, manager.gitmodulesPath, executionError)
	}
	return parseSubmoduleEntries(result.StandardOutput, manager.gitmodulesPath)
}

// CheckRemoteAccess reports whether git ls-remote succeeds against remoteURL.
// A non-zero exit yields false without an error; failing to run git is returned as an error.
// Terminal prompts are disabled so a remote asking for credentials fails instead of blocking.
func (manager *SubmoduleManager) CheckRemoteAccess(executionContext context.Context, remoteURL string) (bool, error) {
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitLSRemoteSubcommandConstant, remoteURL},
		WorkingDirectory:     manager.repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant},
	})
	if executionError == nil {
		return true, nil
	}

	var commandFailedError execshell.CommandFailedError
	if errors.As(executionError, &commandFailedError) {
		return false, nil
	}
	return false, fmt.Errorf(remoteAccessErrorTemplateConstant, remoteURL, executionError)
}

// SetSubmoduleURL persists remoteURL under submodule.<path>.url in the repository's local configuration.
func (manager *SubmoduleManager) SetSubmoduleURL(executionContext context.Context, submodulePath string, remoteURL string) error {
	configurationKey := SubmoduleURLKey(submodulePath)
	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitConfigSubcommandConstant, configurationKey, remoteURL},
		WorkingDirectory: manager.repositoryPath,
	})
	if executionError != nil {
		return fmt.Errorf(setSubmoduleURLErrorTemplateConstant, configurationKey, executionError)
	}
	return nil
}

// SubmoduleURLKey returns the local configuration key holding the URL of the submodule at submodulePath.
func SubmoduleURLKey(submodulePath string) string {
	return fmt.Sprintf(submoduleURLKeyTemplateConstant, submodulePath)
}

// parseSubmoduleEntries decodes `git config --null --list` output, where each record is "key\nvalue\x00".
func parseSubmoduleEntries(listing string, source string) ([]SubmoduleEntry, error) {
	entries := []SubmoduleEntry{}
	indexByName := map[string]int{}
	pathDeclared := map[string]bool{}
	urlDeclared := map[string]bool{}

	for _, record := range strings.Split(listing, configurationRecordSeparatorConstant) {
		if len(record) == 0 {
			continue
		}
		key, value, _ := strings.Cut(record, configurationValueSeparatorConstant)
		if !strings.HasPrefix(key, submoduleSectionPrefixConstant) {
			continue
		}
		subsectionAndVariable := strings.TrimPrefix(key, submoduleSectionPrefixConstant)
		separatorIndex := strings.LastIndex(subsectionAndVariable, submoduleKeySeparatorConstant)
		if separatorIndex <= 0 {
			continue
		}
		name := subsectionAndVariable[:separatorIndex]
		variable := subsectionAndVariable[separatorIndex+1:]

		entryIndex, known := indexByName[name]
		if !known {
			entryIndex = len(entries)
			indexByName[name] = entryIndex
			entries = append(entries, SubmoduleEntry{Name: name})
		}

		switch variable {
		case submodulePathVariableConstant:
			entries[entryIndex].Path = value
			pathDeclared[name] = true
		case submoduleURLVariableConstant:
			entries[entryIndex].URL = value
			urlDeclared[name] = true
		}
	}

	for _, entry := range entries {
		if !pathDeclared[entry.Name] {
			return nil, SubmoduleDeclarationError{Name: entry.Name, Source: source, Message: fmt.Sprintf(missingFieldMessageTemplateConstant, submodulePathVariableConstant)}
		}
		if !urlDeclared[entry.Name] {
			return nil, SubmoduleDeclarationError{Name: entry.Name, Source: source, Message: fmt.Sprintf(missingFieldMessageTemplateConstant, submoduleURLVariableConstant)}
		}
	}

	return entries, nil
}
