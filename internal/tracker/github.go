package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/steveyegge/dupsweep/internal/types"
)

// GitHubClient is a Client for one GitHub repository
type GitHubClient struct {
	client *github.Client
	repo   Repository
}

// Compile-time check that GitHubClient implements Client
var _ Client = (*GitHubClient)(nil)

// NewGitHubClient creates a client authenticated with token. An empty
// baseURL uses api.github.com; otherwise it points at a GitHub Enterprise
// API root.
func NewGitHubClient(repo Repository, token, baseURL string) (*GitHubClient, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHubClient{client: client, repo: repo}, nil
}

// ListOpenIssues pages through open issues one page at a time
func (c *GitHubClient) ListOpenIssues(ctx context.Context, opts ListOptions) ([]types.IssueRecord, error) {
	opts = opts.withDefaults()
	listOpts := &github.IssueListByRepoOptions{
		State:     "open",
		Sort:      "created",
		Direction: "asc",
		ListOptions: github.ListOptions{
			Page:    1,
			PerPage: opts.PageSize,
		},
	}

	var issues []types.IssueRecord
	for page := 0; page < opts.MaxPages; page++ {
		if err := opts.waitPage(ctx); err != nil {
			return nil, err
		}
		pageIssues, resp, err := c.client.Issues.ListByRepo(ctx, c.repo.Owner, c.repo.Name, listOpts)
		if err != nil {
			return nil, fmt.Errorf("listing github issues: %w", mapGitHubError(err))
		}
		for _, i := range pageIssues {
			issues = append(issues, fromGitHubIssue(i))
		}
		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return Filter(issues, opts), nil
}

// GetIssue fetches one issue
func (c *GitHubClient) GetIssue(ctx context.Context, number int) (*types.IssueRecord, error) {
	issue, _, err := c.client.Issues.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return nil, fmt.Errorf("fetching github issue #%d: %w", number, mapGitHubError(err))
	}
	record := fromGitHubIssue(issue)
	return &record, nil
}

// CreateComment posts a comment
func (c *GitHubClient) CreateComment(ctx context.Context, number int, body string) error {
	_, _, err := c.client.Issues.CreateComment(ctx, c.repo.Owner, c.repo.Name, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("commenting on github issue #%d: %w", number, mapGitHubError(err))
	}
	return nil
}

// AddLabels attaches labels. A 404 or 422 from the labels endpoint means
// the repository rejected a label and maps to ErrLabelNotFound.
func (c *GitHubClient) AddLabels(ctx context.Context, number int, labels []string) error {
	_, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.repo.Owner, c.repo.Name, number, labels)
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil {
			switch errResp.Response.StatusCode {
			case http.StatusNotFound, http.StatusUnprocessableEntity:
				return fmt.Errorf("labeling github issue #%d: %w", number, ErrLabelNotFound)
			}
		}
		return fmt.Errorf("labeling github issue #%d: %w", number, err)
	}
	return nil
}

// SetState opens or closes an issue
func (c *GitHubClient) SetState(ctx context.Context, number int, state types.State) error {
	if !state.IsValid() {
		return fmt.Errorf("invalid state: %s", state)
	}
	req := &github.IssueRequest{State: github.String(string(state))}
	if state == types.StateClosed {
		req.StateReason = github.String("not_planned")
	}
	if _, _, err := c.client.Issues.Edit(ctx, c.repo.Owner, c.repo.Name, number, req); err != nil {
		return fmt.Errorf("setting github issue #%d to %s: %w", number, state, mapGitHubError(err))
	}
	return nil
}

func mapGitHubError(err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errResp.Message)
	}
	return err
}

func fromGitHubIssue(i *github.Issue) types.IssueRecord {
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if name := l.GetName(); name != "" {
			labels = append(labels, name)
		}
	}
	var assignees []string
	for _, a := range i.Assignees {
		if login := a.GetLogin(); login != "" {
			assignees = append(assignees, login)
		}
	}

	return types.IssueRecord{
		Number:        i.GetNumber(),
		Title:         i.GetTitle(),
		Body:          i.GetBody(),
		Labels:        labels,
		Author:        i.GetUser().GetLogin(),
		CreatedAt:     i.GetCreatedAt().Time,
		Assignees:     assignees,
		CommentCount:  i.GetComments(),
		Milestone:     i.GetMilestone().GetTitle(),
		URL:           i.GetHTMLURL(),
		IsPullRequest: i.IsPullRequest(),
	}
}
