package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupsweep/internal/types"
)

func newGitLabFake(t *testing.T) (*GitLabClient, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v4/projects/group/app/") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "404 Project Not Found"}`)
			return
		}
		fake.record(r)
		w.Header().Set("Content-Type", "application/json")

		rest := strings.TrimPrefix(r.URL.Path, "/api/v4/projects/group/app/")
		switch {
		case rest == "issues" && r.URL.Query().Get("page") == "2":
			fmt.Fprint(w, `[{"iid": 3, "title": "Third", "created_at": "2026-05-03T00:00:00Z"}]`)
		case rest == "issues":
			w.Header().Set("X-Next-Page", "2")
			w.Header().Set("X-Page", "1")
			fmt.Fprint(w, `[
				{"iid": 1, "title": "Login button broken on Safari", "description": "nothing happens",
				 "author": {"username": "alice"}, "labels": ["bug", "ui"],
				 "assignees": [{"username": "carol"}], "user_notes_count": 4,
				 "milestone": {"title": "v2"}, "created_at": "2026-05-01T09:00:00Z",
				 "web_url": "https://gitlab.example.com/group/app/-/issues/1"}
			]`)
		case rest == "issues/1" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"iid": 1, "title": "Login button broken on Safari"}`)
		case rest == "issues/1" && r.Method == http.MethodPut:
			fmt.Fprint(w, `{"iid": 1}`)
		case rest == "issues/1/notes":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": 7}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "404 Not Found"}`)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGitLabClient(Repository{Owner: "group", Name: "app"}, "token", srv.URL)
	require.NoError(t, err)
	return client, fake
}

func TestGitLabClient_ListOpenIssues(t *testing.T) {
	client, fake := newGitLabFake(t)

	issues, err := client.ListOpenIssues(context.Background(), ListOptions{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3}, numbers(issues))
	got := issues[0]
	assert.Equal(t, "nothing happens", got.Body)
	assert.Equal(t, "alice", got.Author)
	assert.Equal(t, []string{"bug", "ui"}, got.Labels)
	assert.Equal(t, []string{"carol"}, got.Assignees)
	assert.Equal(t, 4, got.CommentCount)
	assert.Equal(t, "v2", got.Milestone)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
}

func TestGitLabClient_PageWaitRunsPerPage(t *testing.T) {
	client, fake := newGitLabFake(t)

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

func TestGitLabClient_GetIssue(t *testing.T) {
	client, _ := newGitLabFake(t)

	issue, err := client.GetIssue(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, issue.Number)

	_, err = client.GetIssue(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGitLabClient_Mutations(t *testing.T) {
	client, fake := newGitLabFake(t)
	ctx := context.Background()

	require.NoError(t, client.CreateComment(ctx, 1, "Closing as a duplicate of #9."))
	require.NoError(t, client.AddLabels(ctx, 1, []string{"duplicate"}))
	require.NoError(t, client.SetState(ctx, 1, types.StateClosed))
	assert.Error(t, client.SetState(ctx, 1, types.State("merged")))

	reqs := fake.Requests()
	require.Len(t, reqs, 3)

	var note map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &note))
	assert.Equal(t, "Closing as a duplicate of #9.", note["body"])

	assert.Contains(t, reqs[1].Body, "duplicate")
	var update map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[2].Body), &update))
	assert.Equal(t, "close", update["state_event"])
}
