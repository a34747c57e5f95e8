package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/subssh/internal/execshell"
	"github.com/temirov/subssh/internal/gitrepo"
)

const (
	testGitExecutableNameConstant  = "git"
	testGitmodulesFileNameConstant = ".gitmodules"
	testDeclaredGitmodulesConstant = `[submodule "wasm/moveit_jacobian"]
	path = wasm/moveit_jacobian
	url = https://github.com/TSUSAKA-ucl/moveit_jacobian
[submodule "wasm/gjk_worker"]
	path = wasm/gjk_worker
	url = https://github.com/TSUSAKA-ucl/gjk_worker.git
	branch = main
[submodule "ext/other"]
	path = ext/other
	url = https://github.com/someone-else/other.git
`
)

func requireGitExecutable(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(testGitExecutableNameConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func newGitExecutor(testInstance *testing.T) *execshell.ShellExecutor {
	testInstance.Helper()
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	return executor
}

func runGitCommand(testInstance *testing.T, executor *execshell.ShellExecutor, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	result, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: arguments, WorkingDirectory: workingDirectory})
	require.NoError(testInstance, executionError)
	return strings.TrimSpace(result.StandardOutput)
}

func newGitRepository(testInstance *testing.T, executor *execshell.ShellExecutor) string {
	testInstance.Helper()
	repositoryPath := testInstance.TempDir()
	runGitCommand(testInstance, executor, repositoryPath, "init", "--quiet")
	require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, testGitmodulesFileNameConstant), []byte(testDeclaredGitmodulesConstant), 0o600))
	return repositoryPath
}

func TestSubmoduleManagerWithGit(testInstance *testing.T) {
	requireGitExecutable(testInstance)
	executor := newGitExecutor(testInstance)

	testInstance.Run("read_entries_in_declaration_order", func(testInstance *testing.T) {
		repositoryPath := newGitRepository(testInstance, executor)
		manager, managerError := gitrepo.NewSubmoduleManager(executor, repositoryPath, "")
		require.NoError(testInstance, managerError)

		entries, readError := manager.ReadEntries(context.Background())
		require.NoError(testInstance, readError)
		require.Equal(testInstance, []gitrepo.SubmoduleEntry{
			{Name: "wasm/moveit_jacobian", Path: "wasm/moveit_jacobian", URL: "https://github.com/TSUSAKA-ucl/moveit_jacobian"},
			{Name: "wasm/gjk_worker", Path: "wasm/gjk_worker", URL: "https://github.com/TSUSAKA-ucl/gjk_worker.git"},
			{Name: "ext/other", Path: "ext/other", URL: "https://github.com/someone-else/other.git"},
		}, entries)
	})

	testInstance.Run("missing_gitmodules_file", func(testInstance *testing.T) {
		manager, managerError := gitrepo.NewSubmoduleManager(executor, testInstance.TempDir(), "")
		require.NoError(testInstance, managerError)

		_, readError := manager.ReadEntries(context.Background())
		var commandFailedError execshell.CommandFailedError
		require.ErrorAs(testInstance, readError, &commandFailedError)
	})

	testInstance.Run("remote_reachability", func(testInstance *testing.T) {
		remoteRoot := testInstance.TempDir()
		reachableRemote := filepath.Join(remoteRoot, "moveit_jacobian.git")
		runGitCommand(testInstance, executor, remoteRoot, "init", "--quiet", "--bare", reachableRemote)

		manager, managerError := gitrepo.NewSubmoduleManager(executor, newGitRepository(testInstance, executor), "")
		require.NoError(testInstance, managerError)

		reachable, reachabilityError := manager.CheckRemoteAccess(context.Background(), reachableRemote)
		require.NoError(testInstance, reachabilityError)
		require.True(testInstance, reachable)

		reachable, reachabilityError = manager.CheckRemoteAccess(context.Background(), filepath.Join(remoteRoot, "gjk_worker.git"))
		require.NoError(testInstance, reachabilityError)
		require.False(testInstance, reachable)
	})

	testInstance.Run("set_submodule_url_writes_local_configuration", func(testInstance *testing.T) {
		repositoryPath := newGitRepository(testInstance, executor)
		manager, managerError := gitrepo.NewSubmoduleManager(executor, repositoryPath, "")
		require.NoError(testInstance, managerError)

		require.NoError(testInstance, manager.SetSubmoduleURL(context.Background(), "wasm/moveit_jacobian", "git@github.com:TSUSAKA-ucl/moveit_jacobian.git"))
		require.Equal(testInstance, "git@github.com:TSUSAKA-ucl/moveit_jacobian.git", runGitCommand(testInstance, executor, repositoryPath, "config", "--local", "--get", "submodule.wasm/moveit_jacobian.url"))

		declaredURL := runGitCommand(testInstance, executor, repositoryPath, "config", "--file", testGitmodulesFileNameConstant, "--get", "submodule.wasm/moveit_jacobian.url")
		require.Equal(testInstance, "https://github.com/TSUSAKA-ucl/moveit_jacobian", declaredURL)
	})
}
