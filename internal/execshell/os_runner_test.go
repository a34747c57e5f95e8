package execshell_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subssh/internal/execshell"
)

const (
	testGitExecutableNameConstant          = "git"
	testBareRepositoryDirectoryConstant    = "remote.git"
	testMissingRepositoryDirectoryConstant = "missing.git"
	testRemoteNotFoundExitCodeConstant     = 128
)

func requireGitExecutable(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(testGitExecutableNameConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func runGit(testInstance *testing.T, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	testInstance.Helper()
	return execshell.NewOSCommandRunner().Run(context.Background(), execshell.ShellCommand{Name: execshell.CommandGit, Details: details})
}

func createBareRepository(testInstance *testing.T) string {
	testInstance.Helper()
	bareRepositoryPath := filepath.Join(testInstance.TempDir(), testBareRepositoryDirectoryConstant)
	result, runError := runGit(testInstance, execshell.CommandDetails{Arguments: []string{"init", "--bare", bareRepositoryPath}})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 0, result.ExitCode, result.StandardError)
	return bareRepositoryPath
}

func TestOSCommandRunnerListsRemoteReferences(testInstance *testing.T) {
	requireGitExecutable(testInstance)

	testCases := []struct {
		name                string
		remotePath          func(testInstance *testing.T) string
		expectedExitCode    int
		expectStandardError bool
	}{
		{
			name:             "existing_bare_repository",
			remotePath:       createBareRepository,
			expectedExitCode: 0,
		},
		{
			name: "missing_repository",
			remotePath: func(testInstance *testing.T) string {
				return filepath.Join(testInstance.TempDir(), testMissingRepositoryDirectoryConstant)
			},
			expectedExitCode:    testRemoteNotFoundExitCodeConstant,
			expectStandardError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			result, runError := runGit(testInstance, execshell.CommandDetails{
				Arguments:        []string{"ls-remote", testCase.remotePath(testInstance)},
				WorkingDirectory: testInstance.TempDir(),
			})
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedExitCode, result.ExitCode, result.StandardError)
			if testCase.expectStandardError {
				require.NotEmpty(testInstance, strings.TrimSpace(result.StandardError))
			}
		})
	}
}

func TestOSCommandRunnerPassesEnvironmentOverrides(testInstance *testing.T) {
	requireGitExecutable(testInstance)
	bareRepositoryPath := createBareRepository(testInstance)

	result, runError := runGit(testInstance, execshell.CommandDetails{
		Arguments:            []string{"rev-parse", "--is-bare-repository"},
		WorkingDirectory:     testInstance.TempDir(),
		EnvironmentVariables: map[string]string{"GIT_DIR": bareRepositoryPath, "GIT_TERMINAL_PROMPT": "0"},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 0, result.ExitCode, result.StandardError)
	require.Equal(testInstance, "true", strings.TrimSpace(result.StandardOutput))
}

func TestOSCommandRunnerReportsStartFailures(testInstance *testing.T) {
	requireGitExecutable(testInstance)

	testCases := []struct {
		name    string
		context func() context.Context
		details execshell.CommandDetails
	}{
		{
			name: "cancelled_context",
			context: func() context.Context {
				cancelledContext, cancel := context.WithCancel(context.Background())
				cancel()
				return cancelledContext
			},
			details: execshell.CommandDetails{Arguments: []string{"--version"}},
		},
		{
			name:    "missing_working_directory",
			context: context.Background,
			details: execshell.CommandDetails{Arguments: []string{"--version"}, WorkingDirectory: filepath.Join(testInstance.TempDir(), "absent")},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			result, runError := execshell.NewOSCommandRunner().Run(testCase.context(), execshell.ShellCommand{Name: execshell.CommandGit, Details: testCase.details})
			require.Error(testInstance, runError)
			require.Equal(testInstance, execshell.ExecutionResult{}, result)
		})
	}
}
