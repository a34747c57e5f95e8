package gitrepo

import (
	"fmt"
	"strings"
)

const (
	httpsProtocolPrefixConstant       = "https://"
	gitUserPrefixConstant             = "git@"
	sshPathDelimiterConstant          = ":"
	pathSeparatorConstant             = "/"
	gitSuffixConstant                 = ".git"
	remotePrefixErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant      = "value required"
	invalidSegmentMessageConstant     = "must not contain path separators or whitespace"
	unknownProtocolMessageConstant    = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// Organization identifies the owner namespace whose submodules are rewritten.
type Organization struct {
	Host  string
	Owner string
}

// RemotePrefixError indicates an organization could not be formatted as a remote prefix.
type RemotePrefixError struct {
	Input   string
	Message string
}

// Error describes the formatting failure.
func (prefixError RemotePrefixError) Error() string {
	return fmt.Sprintf(remotePrefixErrorTemplateConstant, prefixError.Input, prefixError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remotePrefixErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// FormatRemotePrefix renders the URL prefix under which the organization's repositories live.
//
// HTTPS prefixes look like https://github.com/owner/ and SSH prefixes like git@github.com:owner/.
func FormatRemotePrefix(protocol RemoteProtocol, organization Organization) (string, error) {
	host, hostError := normalizeSegment(organization.Host)
	if hostError != nil {
		return "", hostError
	}
	owner, ownerError := normalizeSegment(organization.Owner)
	if ownerError != nil {
		return "", ownerError
	}

	switch protocol {
	case RemoteProtocolHTTPS:
		return httpsProtocolPrefixConstant + host + pathSeparatorConstant + owner + pathSeparatorConstant, nil
	case RemoteProtocolSSH:
		return gitUserPrefixConstant + host + sshPathDelimiterConstant + owner + pathSeparatorConstant, nil
	default:
		return "", UnsupportedProtocolError{Protocol: protocol}
	}
}

// EnsureGitSuffix appends the .git suffix unless the repository identifier already carries it.
func EnsureGitSuffix(repositoryIdentifier string) string {
	if strings.HasSuffix(repositoryIdentifier, gitSuffixConstant) {
		return repositoryIdentifier
	}
	return repositoryIdentifier + gitSuffixConstant
}

func normalizeSegment(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", RemotePrefixError{Input: raw, Message: requiredValueMessageConstant}
	}
	if strings.ContainsAny(trimmed, " \t\n/") {
		return "", RemotePrefixError{Input: raw, Message: invalidSegmentMessageConstant}
	}
	return trimmed, nil
}
