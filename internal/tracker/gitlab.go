package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/steveyegge/dupsweep/internal/types"
)

// GitLabClient is a Client for one GitLab project
type GitLabClient struct {
	client  *gitlab.Client
	project string
}

// Compile-time check that GitLabClient implements Client
var _ Client = (*GitLabClient)(nil)

// NewGitLabClient creates a client for the project path repo. An empty
// baseURL uses gitlab.com; otherwise it is the instance root, without /api/v4.
func NewGitLabClient(repo Repository, token, baseURL string) (*GitLabClient, error) {
	var (
		client *gitlab.Client
		err    error
	)
	if baseURL == "" {
		client, err = gitlab.NewClient(token)
	} else {
		apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
	}
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLabClient{client: client, project: repo.String()}, nil
}

// ListOpenIssues pages through opened issues one page at a time
func (c *GitLabClient) ListOpenIssues(ctx context.Context, opts ListOptions) ([]types.IssueRecord, error) {
	opts = opts.withDefaults()
	listOpts := &gitlab.ListProjectIssuesOptions{
		State:   gitlab.Ptr("opened"),
		OrderBy: gitlab.Ptr("created_at"),
		Sort:    gitlab.Ptr("asc"),
	}
	setInt(&listOpts.Page, 1)
	setInt(&listOpts.PerPage, opts.PageSize)
	if since := opts.Since(); !since.IsZero() {
		listOpts.CreatedAfter = gitlab.Ptr(since)
	}

	var issues []types.IssueRecord
	for page := 0; page < opts.MaxPages; page++ {
		if err := opts.waitPage(ctx); err != nil {
			return nil, err
		}
		pageIssues, resp, err := c.client.Issues.ListProjectIssues(c.project, listOpts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("listing gitlab issues: %w", mapGitLabError(err))
		}
		for _, i := range pageIssues {
			if i != nil {
				issues = append(issues, fromGitLabIssue(i))
			}
		}
		if resp.NextPage == 0 {
			break
		}
		listOpts.Page = resp.NextPage
	}

	return Filter(issues, opts), nil
}

// GetIssue fetches one issue by IID
func (c *GitLabClient) GetIssue(ctx context.Context, number int) (*types.IssueRecord, error) {
	issue, _, err := c.client.Issues.GetIssue(c.project, number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching gitlab issue #%d: %w", number, mapGitLabError(err))
	}
	record := fromGitLabIssue(issue)
	return &record, nil
}

// CreateComment posts a note
func (c *GitLabClient) CreateComment(ctx context.Context, number int, body string) error {
	_, _, err := c.client.Notes.CreateIssueNote(c.project, number, &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("commenting on gitlab issue #%d: %w", number, mapGitLabError(err))
	}
	return nil
}

// AddLabels attaches labels. GitLab creates unknown labels on the fly, so
// ErrLabelNotFound is never returned.
func (c *GitLabClient) AddLabels(ctx context.Context, number int, labels []string) error {
	add := gitlab.LabelOptions(labels)
	_, _, err := c.client.Issues.UpdateIssue(c.project, number, &gitlab.UpdateIssueOptions{
		AddLabels: &add,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("labeling gitlab issue #%d: %w", number, mapGitLabError(err))
	}
	return nil
}

// SetState closes or reopens an issue
func (c *GitLabClient) SetState(ctx context.Context, number int, state types.State) error {
	var event string
	switch state {
	case types.StateClosed:
		event = "close"
	case types.StateOpen:
		event = "reopen"
	default:
		return fmt.Errorf("invalid state: %s", state)
	}
	_, _, err := c.client.Issues.UpdateIssue(c.project, number, &gitlab.UpdateIssueOptions{
		StateEvent: gitlab.Ptr(event),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("setting gitlab issue #%d to %s: %w", number, state, mapGitLabError(err))
	}
	return nil
}

func mapGitLabError(err error) error {
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, errResp.Message)
	}
	return err
}

// setInt assigns v to a pagination field whatever its integer width
func setInt[T ~int | ~int64](dst *T, v int) {
	*dst = T(v)
}

func fromGitLabIssue(i *gitlab.Issue) types.IssueRecord {
	labels := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		if l != "" {
			labels = append(labels, l)
		}
	}
	var assignees []string
	for _, a := range i.Assignees {
		if a != nil && a.Username != "" {
			assignees = append(assignees, a.Username)
		}
	}

	record := types.IssueRecord{
		Number:       int(i.IID),
		Title:        i.Title,
		Body:         i.Description,
		Labels:       labels,
		Assignees:    assignees,
		CommentCount: int(i.UserNotesCount),
		URL:          i.WebURL,
	}
	if i.Author != nil {
		record.Author = i.Author.Username
	}
	if i.CreatedAt != nil {
		record.CreatedAt = *i.CreatedAt
	}
	if i.Milestone != nil {
		record.Milestone = i.Milestone.Title
	}
	return record
}
