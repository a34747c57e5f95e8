// Package submodules switches an organization's submodules from HTTPS to SSH.
//
// Rewriter walks the declared submodules once. Entries under the configured
// HTTPS prefix get a candidate SSH URL, which is checked and, when reachable,
// written to the repository's local configuration. Unreachable candidates
// are reported and left untouched.
package submodules
