// Package tracker talks to issue-tracking services.
//
// Client is the narrow surface the workflow needs: list open issues, fetch
// one issue, and the three mutations remediation performs. GitHubClient and
// GitLabClient speak to the hosted APIs, MemoryClient serves fixtures and
// records mutations for tests and offline runs, and RateLimited wraps any
// Client with a token bucket.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/dupsweep/internal/types"
)

var (
	// ErrNotFound is returned when an issue does not exist
	ErrNotFound = errors.New("issue not found")

	// ErrLabelNotFound is returned by AddLabels when the tracker rejects an
	// unknown label. Remediation treats it as non-fatal.
	ErrLabelNotFound = errors.New("label not found")
)

// Client is an issue-tracker backend
type Client interface {
	// ListOpenIssues fetches open issues page by page and returns the ones
	// that pass Filter. Pull requests are never returned.
	ListOpenIssues(ctx context.Context, opts ListOptions) ([]types.IssueRecord, error)

	// GetIssue fetches a single issue
	GetIssue(ctx context.Context, number int) (*types.IssueRecord, error)

	// CreateComment posts a comment on an issue
	CreateComment(ctx context.Context, number int, body string) error

	// AddLabels attaches labels to an issue
	AddLabels(ctx context.Context, number int, labels []string) error

	// SetState opens or closes an issue
	SetState(ctx context.Context, number int, state types.State) error
}

// Default pagination bounds
const (
	DefaultPageSize = 100
	DefaultMaxPages = 10
)

// ListOptions controls listing and filtering of open issues
type ListOptions struct {
	IncludeOnlyLabels []string
	ExcludeLabels     []string

	// MaxDaysOld drops issues created more than this many days ago (0 = no limit)
	MaxDaysOld int

	PageSize int
	MaxPages int

	// Now anchors the age filter; zero means time.Now()
	Now time.Time

	// PageWait, when set, runs before every page request. An error aborts
	// the listing.
	PageWait func(ctx context.Context) error
}

// waitPage runs PageWait if one is set
func (o ListOptions) waitPage(ctx context.Context) error {
	if o.PageWait == nil {
		return nil
	}
	return o.PageWait(ctx)
}

// withDefaults fills pagination bounds and Now
func (o ListOptions) withDefaults() ListOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// Since returns the oldest creation time kept by the age filter, or the
// zero time when there is no age limit
func (o ListOptions) Since() time.Time {
	if o.MaxDaysOld <= 0 {
		return time.Time{}
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.AddDate(0, 0, -o.MaxDaysOld)
}

// Repository identifies an owner/name pair (a GitLab project path for GitLab)
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository parses "owner/name". GitLab subgroups keep everything
// before the last slash as the owner.
func ParseRepository(s string) (Repository, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return Repository{}, fmt.Errorf("repository must be owner/name (got %q)", s)
	}
	return Repository{Owner: s[:idx], Name: s[idx+1:]}, nil
}

// String returns "owner/name"
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// Slug returns a filesystem-safe form of the repository, "owner-name"
func (r Repository) Slug() string {
	return strings.ReplaceAll(r.String(), "/", "-")
}

// Supported providers
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// NewClient builds the hosted-API client for provider
func NewClient(provider string, repo Repository, token, baseURL string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGitHub, "":
		return NewGitHubClient(repo, token, baseURL)
	case ProviderGitLab:
		return NewGitLabClient(repo, token, baseURL)
	default:
		return nil, fmt.Errorf("unknown tracker provider: %q", provider)
	}
}
