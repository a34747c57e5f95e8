// Package gitrepo contains git-backed collaborators for submodule rewriting.
//
// SubmoduleManager reads .gitmodules declarations, checks remotes with
// git ls-remote, and persists submodule URLs with git config. The remote
// prefix helpers derive an organization's HTTPS and SSH namespaces.
package gitrepo
