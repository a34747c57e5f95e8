package submodules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/subssh/internal/gitrepo"
)

const (
	convertMessageTemplateConstant            = "change to SSH access. %s\n"
	updatedMessageTemplateConstant            = "updated submodules for %s\n"
	unreachableMessageTemplateConstant        = "cannot access %s using SSH\n"
	plannedMessageTemplateConstant            = "would update %s to %s\n"
	readEntriesErrorTemplateConstant          = "unable to load submodule declarations: %w"
	accessCheckErrorTemplateConstant          = "unable to check %s for submodule %s: %w"
	entryReaderMissingMessageConstant         = "submodule entry reader not configured"
	accessCheckerMissingMessageConstant       = "remote access checker not configured"
	configurationWriterMissingMessageConstant = "configuration writer not configured"
	httpsPrefixMissingMessageConstant         = "https prefix not configured"
	sshPrefixMissingMessageConstant           = "ssh prefix not configured"
	entriesLoadedLogMessageConstant           = "submodule declarations loaded"
	entrySkippedLogMessageConstant            = "submodule outside organization namespace"
	emptyIdentifierLogMessageConstant         = "submodule url names no repository under the organization prefix"
	entryConvertedLogMessageConstant          = "submodule switched to SSH"
	entryPlannedLogMessageConstant            = "submodule SSH switch planned"
	entryUnreachableLogMessageConstant        = "submodule SSH remote unreachable"
	entryWriteFailedLogMessageConstant        = "submodule SSH URL could not be written"
	entryCountLogFieldConstant                = "entry_count"
	submodulePathLogFieldConstant             = "submodule_path"
	submoduleURLLogFieldConstant              = "submodule_url"
	candidateURLLogFieldConstant              = "candidate_url"
	httpsPrefixLogFieldConstant               = "https_prefix"
	dryRunLogFieldConstant                    = "dry_run"
)

var (
	// ErrEntryReaderNotConfigured indicates the rewriter has no source of submodule declarations.
	ErrEntryReaderNotConfigured = errors.New(entryReaderMissingMessageConstant)
	// ErrRemoteAccessCheckerNotConfigured indicates the rewriter cannot test SSH reachability.
	ErrRemoteAccessCheckerNotConfigured = errors.New(accessCheckerMissingMessageConstant)
	// ErrConfigurationWriterNotConfigured indicates the rewriter cannot persist URLs.
	ErrConfigurationWriterNotConfigured = errors.New(configurationWriterMissingMessageConstant)
	// ErrHTTPSPrefixNotConfigured indicates an empty HTTPS prefix, which would match every URL.
	ErrHTTPSPrefixNotConfigured = errors.New(httpsPrefixMissingMessageConstant)
	// ErrSSHPrefixNotConfigured indicates an empty SSH prefix.
	ErrSSHPrefixNotConfigured = errors.New(sshPrefixMissingMessageConstant)
)

// EntryReader loads the declared submodules.
type EntryReader interface {
	ReadEntries(executionContext context.Context) ([]gitrepo.SubmoduleEntry, error)
}

// RemoteAccessChecker tests whether a remote can be listed. A false result without error means the remote is unreachable.
type RemoteAccessChecker interface {
	CheckRemoteAccess(executionContext context.Context, remoteURL string) (bool, error)
}

// ConfigurationWriter persists a submodule URL into local configuration.
type ConfigurationWriter interface {
	SetSubmoduleURL(executionContext context.Context, submodulePath string, remoteURL string) error
}

// Options configures a rewrite run.
type Options struct {
	HTTPSPrefix string
	SSHPrefix   string
	DryRun      bool
}

// Dependencies supplies collaborators required for rewriting.
type Dependencies struct {
	Reader  EntryReader
	Checker RemoteAccessChecker
	Writer  ConfigurationWriter
	Output  io.Writer
	Logger  *zap.Logger
}

// Outcome classifies what happened to a single submodule.
type Outcome string

// Submodule outcomes.
const (
	OutcomeSkipped     Outcome = Outcome("skipped")
	OutcomeConverted   Outcome = Outcome("converted")
	OutcomePlanned     Outcome = Outcome("planned")
	OutcomeUnreachable Outcome = Outcome("unreachable")
	OutcomeWriteFailed Outcome = Outcome("write_failed")
)

// Result records the outcome for one submodule, in declaration order.
type Result struct {
	Entry        gitrepo.SubmoduleEntry
	CandidateURL string
	Outcome      Outcome
}

// Rewriter switches organization submodules from HTTPS to SSH when SSH access works.
type Rewriter struct {
	dependencies Dependencies
	options      Options
}

// NewRewriter validates the dependencies and options and constructs a Rewriter.
func NewRewriter(dependencies Dependencies, options Options) (*Rewriter, error) {
	if dependencies.Reader == nil {
		return nil, ErrEntryReaderNotConfigured
	}
	if dependencies.Checker == nil {
		return nil, ErrRemoteAccessCheckerNotConfigured
	}
	if dependencies.Writer == nil {
		return nil, ErrConfigurationWriterNotConfigured
	}
	if len(options.HTTPSPrefix) == 0 {
		return nil, ErrHTTPSPrefixNotConfigured
	}
	if len(options.SSHPrefix) == 0 {
		return nil, ErrSSHPrefixNotConfigured
	}
	if dependencies.Output == nil {
		dependencies.Output = io.Discard
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	return &Rewriter{dependencies: dependencies, options: options}, nil
}

// Run processes every declared submodule once, sequentially.
// Unreachable SSH remotes and failed configuration writes are reported and skipped.
// Failing to load the declarations or to run the access check aborts the run.
func (rewriter *Rewriter) Run(executionContext context.Context) ([]Result, error) {
	entries, readError := rewriter.dependencies.Reader.ReadEntries(executionContext)
	if readError != nil {
		return nil, fmt.Errorf(readEntriesErrorTemplateConstant, readError)
	}

	rewriter.dependencies.Logger.Debug(
		entriesLoadedLogMessageConstant,
		zap.Int(entryCountLogFieldConstant, len(entries)),
		zap.String(httpsPrefixLogFieldConstant, rewriter.options.HTTPSPrefix),
		zap.Bool(dryRunLogFieldConstant, rewriter.options.DryRun),
	)

	results := make([]Result, 0, len(entries))
	for _, entry := range entries {
		result, entryError := rewriter.rewriteEntry(executionContext, entry)
		if entryError != nil {
			return results, entryError
		}
		results = append(results, result)
	}
	return results, nil
}

func (rewriter *Rewriter) rewriteEntry(executionContext context.Context, entry gitrepo.SubmoduleEntry) (Result, error) {
	logger := rewriter.dependencies.Logger.With(
		zap.String(submodulePathLogFieldConstant, entry.Path),
		zap.String(submoduleURLLogFieldConstant, entry.URL),
	)

	repositoryIdentifier, matched := rewriter.RepositoryIdentifier(entry.URL)
	if !matched {
		logger.Debug(entrySkippedLogMessageConstant)
		return Result{Entry: entry, Outcome: OutcomeSkipped}, nil
	}
	if repositoryIdentifier == gitrepo.EnsureGitSuffix("") {
		logger.Warn(emptyIdentifierLogMessageConstant)
	}

	candidateURL := rewriter.options.SSHPrefix + repositoryIdentifier
	logger = logger.With(zap.String(candidateURLLogFieldConstant, candidateURL))

	reachable, accessError := rewriter.dependencies.Checker.CheckRemoteAccess(executionContext, candidateURL)
	if accessError != nil {
		return Result{}, fmt.Errorf(accessCheckErrorTemplateConstant, candidateURL, entry.Path, accessError)
	}
	if !reachable {
		rewriter.printf(unreachableMessageTemplateConstant, repositoryIdentifier)
		logger.Warn(entryUnreachableLogMessageConstant)
		return Result{Entry: entry, CandidateURL: candidateURL, Outcome: OutcomeUnreachable}, nil
	}

	rewriter.printf(convertMessageTemplateConstant, repositoryIdentifier)

	if rewriter.options.DryRun {
		rewriter.printf(plannedMessageTemplateConstant, gitrepo.SubmoduleURLKey(entry.Path), candidateURL)
		logger.Info(entryPlannedLogMessageConstant)
		return Result{Entry: entry, CandidateURL: candidateURL, Outcome: OutcomePlanned}, nil
	}

	if writeError := rewriter.dependencies.Writer.SetSubmoduleURL(executionContext, entry.Path, candidateURL); writeError != nil {
		rewriter.printf(unreachableMessageTemplateConstant, repositoryIdentifier)
		logger.Warn(entryWriteFailedLogMessageConstant, zap.Error(writeError))
		return Result{Entry: entry, CandidateURL: candidateURL, Outcome: OutcomeWriteFailed}, nil
	}

	rewriter.printf(updatedMessageTemplateConstant, repositoryIdentifier)
	logger.Info(entryConvertedLogMessageConstant)
	return Result{Entry: entry, CandidateURL: candidateURL, Outcome: OutcomeConverted}, nil
}

// RepositoryIdentifier strips the HTTPS prefix from remoteURL and normalizes the .git suffix.
// The boolean is false when remoteURL lies outside the organization namespace.
func (rewriter *Rewriter) RepositoryIdentifier(remoteURL string) (string, bool) {
	if !strings.HasPrefix(remoteURL, rewriter.options.HTTPSPrefix) {
		return "", false
	}
	return gitrepo.EnsureGitSuffix(strings.TrimPrefix(remoteURL, rewriter.options.HTTPSPrefix)), true
}

func (rewriter *Rewriter) printf(format string, arguments ...any) {
	fmt.Fprintf(rewriter.dependencies.Output, format, arguments...)
}
