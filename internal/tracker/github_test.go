package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupsweep/internal/types"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeAPI) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
}

func (f *fakeAPI) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newGitHubFake(t *testing.T) (*GitHubClient, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/repos/octo/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[
				{"number": 3, "title": "Third", "created_at": "2026-05-03T00:00:00Z", "labels": [{"name": "wontfix"}]}
			]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/octo/widgets/issues?page=2>; rel="next"`, srv.URL))
		fmt.Fprint(w, `[
			{"number": 1, "title": "Login button broken on Safari", "body": "nothing happens",
			 "user": {"login": "alice"}, "labels": [{"name": "bug"}, {"name": "ui"}],
			 "assignees": [{"login": "carol"}], "comments": 2, "milestone": {"title": "v2"},
			 "created_at": "2026-05-01T09:00:00Z", "html_url": "https://github.com/octo/widgets/issues/1"},
			{"number": 2, "title": "Bump deps", "created_at": "2026-05-02T00:00:00Z",
			 "pull_request": {"url": "https://api.github.com/repos/octo/widgets/pulls/2"}}
		]`)
	})
	mux.HandleFunc("/repos/octo/widgets/issues/1", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"number": 1, "title": "Login button broken on Safari", "state": "open"}`)
	})
	mux.HandleFunc("/repos/octo/widgets/issues/404", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})
	mux.HandleFunc("/repos/octo/widgets/issues/1/comments", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 10}`)
	})
	mux.HandleFunc("/repos/octo/widgets/issues/1/labels", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		fmt.Fprint(w, `[{"name": "duplicate"}]`)
	})
	mux.HandleFunc("/repos/octo/widgets/issues/5/labels", func(w http.ResponseWriter, r *http.Request) {
		fake.record(r)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewGitHubClient(Repository{Owner: "octo", Name: "widgets"}, "token", srv.URL)
	require.NoError(t, err)
	return client, fake
}

func TestGitHubClient_ListOpenIssues(t *testing.T) {
	client, fake := newGitHubFake(t)

	issues, err := client.ListOpenIssues(context.Background(), ListOptions{ExcludeLabels: []string{"wontfix"}})
	require.NoError(t, err)

	require.Len(t, issues, 1)
	got := issues[0]
	assert.Equal(t, 1, got.Number)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, []string{"bug", "ui"}, got.Labels)
	assert.Equal(t, []string{"carol"}, got.Assignees)
	assert.Equal(t, 2, got.CommentCount)
	assert.Equal(t, "v2", got.Milestone)
	assert.Equal(t, 2026, got.CreatedAt.Year())

	// two pages fetched in sequence
	assert.Len(t, fake.Requests(), 2)
}

func TestGitHubClient_MaxPages(t *testing.T) {
	client, fake := newGitHubFake(t)

	_, err := client.ListOpenIssues(context.Background(), ListOptions{MaxPages: 1})
	require.NoError(t, err)
	assert.Len(t, fake.Requests(), 1)
}

func TestGitHubClient_PageWaitRunsPerPage(t *testing.T) {
	client, fake := newGitHubFake(t)

	calls := 0
	opts := ListOptions{PageWait: func(ctx context.Context) error {
		calls++
		return nil
	}}
	_, err := client.ListOpenIssues(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, fake.Requests(), 2)
}

func TestGitHubClient_PageWaitErrorAborts(t *testing.T) {
	client, fake := newGitHubFake(t)

	calls := 0
	opts := ListOptions{PageWait: func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return context.DeadlineExceeded
		}
		return nil
	}}
	_, err := client.ListOpenIssues(context.Background(), opts)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	// the second page is never requested
	assert.Len(t, fake.Requests(), 1)
}

func TestGitHubClient_GetIssue(t *testing.T) {
	client, _ := newGitHubFake(t)

	issue, err := client.GetIssue(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Login button broken on Safari", issue.Title)

	_, err = client.GetIssue(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGitHubClient_Mutations(t *testing.T) {
	client, fake := newGitHubFake(t)
	ctx := context.Background()

	require.NoError(t, client.CreateComment(ctx, 1, "Closing as a duplicate of #9."))
	require.NoError(t, client.AddLabels(ctx, 1, []string{"duplicate"}))
	assert.ErrorIs(t, client.AddLabels(ctx, 5, []string{"duplicate"}), ErrLabelNotFound)
	require.NoError(t, client.SetState(ctx, 1, types.StateClosed))

	reqs := fake.Requests()
	require.Len(t, reqs, 4)

	var comment map[string]string
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &comment))
	assert.Equal(t, "Closing as a duplicate of #9.", comment["body"])

	assert.Equal(t, http.MethodPatch, reqs[3].Method)
	var edit map[string]string
	require.NoError(t, json.Unmarshal([]byte(reqs[3].Body), &edit))
	assert.Equal(t, "closed", edit["state"])
	assert.Equal(t, "not_planned", edit["state_reason"])
}
