package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/subssh/internal/utils/path"
)

const testHomeDirectoryConstant = "/home/robot"

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name         string
		candidate    string
		expectedPath string
	}{
		{name: "bare_tilde", candidate: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_subdirectory", candidate: "~/.config/subssh", expectedPath: filepath.Join(testHomeDirectoryConstant, ".config/subssh")},
		{name: "absolute_path", candidate: "/srv/robot/.gitmodules", expectedPath: "/srv/robot/.gitmodules"},
		{name: "relative_path", candidate: "wasm", expectedPath: "wasm"},
		{name: "other_user", candidate: "~alice/repo", expectedPath: "~alice/repo"},
		{name: "surrounding_whitespace", candidate: "  ~/repo ", expectedPath: filepath.Join(testHomeDirectoryConstant, "repo")},
		{name: "empty", candidate: "", expectedPath: ""},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
				return testHomeDirectoryConstant, nil
			})
			expandedPath, expandError := expander.Expand(testCase.candidate)
			require.NoError(testInstance, expandError)
			require.Equal(testInstance, testCase.expectedPath, expandedPath)
		})
	}
}

func TestHomeExpanderLooksUpHomeOnce(testInstance *testing.T) {
	lookupCount := 0
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		lookupCount++
		return testHomeDirectoryConstant, nil
	})

	expandedPaths := []string{}
	for _, candidatePath := range []string{"~/a", "~/b", "/c"} {
		expandedPath, expandError := expander.Expand(candidatePath)
		require.NoError(testInstance, expandError)
		expandedPaths = append(expandedPaths, expandedPath)
	}
	require.Equal(testInstance, []string{filepath.Join(testHomeDirectoryConstant, "a"), filepath.Join(testHomeDirectoryConstant, "b"), "/c"}, expandedPaths)
	require.Equal(testInstance, 1, lookupCount)
}

func TestHomeExpanderReportsLookupFailure(testInstance *testing.T) {
	lookupFailure := errors.New("$HOME is not defined")
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return "", lookupFailure
	})

	_, expandError := expander.Expand("~/repo")
	require.ErrorIs(testInstance, expandError, lookupFailure)

	unchangedPath, relativeError := expander.Expand("repo")
	require.NoError(testInstance, relativeError)
	require.Equal(testInstance, "repo", unchangedPath)
}
