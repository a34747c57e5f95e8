// Package pathutils resolves user-supplied filesystem paths for the CLI.
package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant                = "~"
	homeDirectoryErrorTemplateConstant = "unable to expand %s: %w"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander turns "~" and "~/..." into paths under the user's home directory.
// The home directory is looked up once, on first use.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	lookupOnce            sync.Once
	homeDirectory         string
	lookupError           error
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves a leading tilde. Paths of the form "~user" are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if !strings.HasPrefix(trimmedPath, tildeSymbolConstant) {
		return trimmedPath, nil
	}

	remainder := strings.TrimPrefix(trimmedPath, tildeSymbolConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return trimmedPath, nil
	}

	expander.lookupOnce.Do(func() {
		expander.homeDirectory, expander.lookupError = expander.homeDirectoryProvider()
	})
	if expander.lookupError != nil {
		return "", fmt.Errorf(homeDirectoryErrorTemplateConstant, trimmedPath, expander.lookupError)
	}

	return filepath.Join(expander.homeDirectory, remainder), nil
}
