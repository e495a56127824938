package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/steveyegge/dupsweep/internal/types"
	"github.com/steveyegge/dupsweep/internal/workflow"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type recordingRun struct {
	mu     sync.Mutex
	calls  []workflow.Invocation
	result *types.WorkflowResult
}

func (r *recordingRun) run(_ context.Context, inv workflow.Invocation) *types.WorkflowResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, inv)
	if r.result != nil {
		return r.result
	}
	return &types.WorkflowResult{Mode: types.ModeCheck, Repository: inv.Repository, Success: true, Report: &types.Report{}}
}

func testConfig() Config {
	return Config{
		Repository:        "acme/widgets",
		Profile:           "strict",
		GitHubSecret:      "s3cret",
		GitLabToken:       "gl-token",
		MaxConcurrentRuns: 1,
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func githubRequest(t *testing.T, event, secret, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", sign(secret, []byte(body)))
	return req
}

func issuesPayload(action, repo string, number int) string {
	return `{"action":"` + action + `","issue":{"number":` + itoa(number) + `,"title":"Login broken"},"repository":{"full_name":"` + repo + `"}}`
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealth(t *testing.T) {
	srv := New(testConfig(), (&recordingRun{}).run, zerolog.Nop())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGitHubWebhook(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		secret     string
		body       string
		wantStatus int
		wantIssue  int
		wantBody   string
	}{
		{
			name:       "opened issue triggers check",
			event:      "issues",
			secret:     "s3cret",
			body:       issuesPayload("opened", "acme/widgets", 42),
			wantStatus: http.StatusOK,
			wantIssue:  42,
		},
		{
			name:       "bad signature",
			event:      "issues",
			secret:     "wrong",
			body:       issuesPayload("opened", "acme/widgets", 42),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid signature",
		},
		{
			name:       "ping",
			event:      "ping",
			secret:     "s3cret",
			body:       `{"zen":"Keep it logically awesome."}`,
			wantStatus: http.StatusOK,
			wantBody:   "pong",
		},
		{
			name:       "unsupported event",
			event:      "push",
			secret:     "s3cret",
			body:       `{}`,
			wantStatus: http.StatusOK,
			wantBody:   "unsupported event push",
		},
		{
			name:       "closed action ignored",
			event:      "issues",
			secret:     "s3cret",
			body:       issuesPayload("closed", "acme/widgets", 42),
			wantStatus: http.StatusOK,
			wantBody:   "action closed",
		},
		{
			name:       "other repository ignored",
			event:      "issues",
			secret:     "s3cret",
			body:       issuesPayload("opened", "acme/other", 42),
			wantStatus: http.StatusOK,
			wantBody:   "not watched",
		},
		{
			name:       "malformed payload",
			event:      "issues",
			secret:     "s3cret",
			body:       `{"action":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRun{}
			srv := New(testConfig(), rec.run, zerolog.Nop())
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, githubRequest(t, tt.event, tt.secret, tt.body))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			if tt.wantIssue == 0 {
				assert.Empty(t, rec.calls)
				return
			}
			require.Len(t, rec.calls, 1)
			assert.Equal(t, workflow.Invocation{
				Repository: "acme/widgets",
				Profile:    "strict",
				Webhook:    true,
				Issue:      tt.wantIssue,
			}, rec.calls[0])
		})
	}
}

func TestGitHubWebhook_NoSecretSkipsValidation(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubSecret = ""
	rec := &recordingRun{}
	srv := New(cfg, rec.run, zerolog.Nop())

	req := githubRequest(t, "issues", "anything", issuesPayload("reopened", "acme/widgets", 7))
	req.Header.Del("X-Hub-Signature-256")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 7, rec.calls[0].Issue)
}

func TestGitHubWebhook_FailedRunReturns500(t *testing.T) {
	rec := &recordingRun{result: &types.WorkflowResult{Mode: types.ModeCheck, Error: "fetching issue #42: not found"}}
	srv := New(testConfig(), rec.run, zerolog.Nop())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, githubRequest(t, "issues", "s3cret", issuesPayload("opened", "acme/widgets", 42)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var got types.WorkflowResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, "fetching issue #42: not found", got.Error)
}

func gitlabRequest(token, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gitlab", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Gitlab-Token", token)
	}
	return req
}

func TestGitLabWebhook(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
		wantIssue  int
		wantBody   string
	}{
		{
			name:       "open issue triggers check",
			token:      "gl-token",
			body:       `{"object_kind":"issue","project":{"path_with_namespace":"acme/widgets"},"object_attributes":{"iid":12,"action":"open"}}`,
			wantStatus: http.StatusOK,
			wantIssue:  12,
		},
		{
			name:       "missing token",
			body:       `{"object_kind":"issue"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "missing webhook token",
		},
		{
			name:       "wrong token",
			token:      "nope",
			body:       `{"object_kind":"issue"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid webhook token",
		},
		{
			name:       "note hook ignored",
			token:      "gl-token",
			body:       `{"object_kind":"note"}`,
			wantStatus: http.StatusOK,
			wantBody:   "unsupported event note",
		},
		{
			name:       "close action ignored",
			token:      "gl-token",
			body:       `{"object_kind":"issue","object_attributes":{"iid":12,"action":"close"}}`,
			wantStatus: http.StatusOK,
			wantBody:   "action close",
		},
		{
			name:       "missing iid",
			token:      "gl-token",
			body:       `{"object_kind":"issue","object_attributes":{"action":"update"}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			token:      "gl-token",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingRun{}
			srv := New(testConfig(), rec.run, zerolog.Nop())
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, gitlabRequest(tt.token, tt.body))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			if tt.wantIssue == 0 {
				assert.Empty(t, rec.calls)
				return
			}
			require.Len(t, rec.calls, 1)
			assert.Equal(t, tt.wantIssue, rec.calls[0].Issue)
			assert.True(t, rec.calls[0].Webhook)
		})
	}
}

func TestConcurrencyLimit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	run := func(ctx context.Context, inv workflow.Invocation) *types.WorkflowResult {
		close(started)
		<-release
		return &types.WorkflowResult{Mode: types.ModeCheck, Success: true, Report: &types.Report{}}
	}
	srv := New(testConfig(), run, zerolog.Nop())

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Handler().ServeHTTP(first, gitlabRequest("gl-token", `{"object_kind":"issue","object_attributes":{"iid":1,"action":"open"}}`))
	}()
	<-started

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, gitlabRequest("gl-token", `{"object_kind":"issue","object_attributes":{"iid":2,"action":"open"}}`))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	close(release)
	<-done
	assert.Equal(t, http.StatusOK, first.Code)
}

func TestAsyncWebhook_AcceptsAndRunsInBackground(t *testing.T) {
	rec := &recordingRun{}
	cfg := testConfig()
	cfg.Async = true
	srv := New(cfg, rec.run, zerolog.Nop())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, githubRequest(t, "issues", "s3cret", issuesPayload("opened", "acme/widgets", 42)))
	require.Equal(t, http.StatusAccepted, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, float64(42), body["issue"])

	srv.Wait()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.calls, 1)
	assert.Equal(t, 42, rec.calls[0].Issue)
	assert.True(t, rec.calls[0].Webhook)
}

func TestAsyncWebhook_RespondsBeforeRunFinishes(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	run := func(ctx context.Context, inv workflow.Invocation) *types.WorkflowResult {
		close(started)
		<-release
		// the request context is gone by now; the run context must not be
		assert.NoError(t, ctx.Err())
		return &types.WorkflowResult{Mode: types.ModeCheck, Success: false, Error: "tracker down"}
	}
	cfg := testConfig()
	cfg.Async = true
	srv := New(cfg, run, zerolog.Nop())

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, gitlabRequest("gl-token", `{"object_kind":"issue","object_attributes":{"iid":1,"action":"open"}}`))
	assert.Equal(t, http.StatusAccepted, first.Code)
	<-started

	// the background run still holds the only slot
	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, gitlabRequest("gl-token", `{"object_kind":"issue","object_attributes":{"iid":2,"action":"open"}}`))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	close(release)
	srv.Wait()

	third := httptest.NewRecorder()
	srv.Handler().ServeHTTP(third, gitlabRequest("gl-token", `{"object_kind":"issue","object_attributes":{"iid":3,"action":"open"}}`))
	assert.Equal(t, http.StatusAccepted, third.Code)
	srv.Wait()
}

func TestAsyncWebhook_IgnoredEventsStaySynchronous(t *testing.T) {
	rec := &recordingRun{}
	cfg := testConfig()
	cfg.Async = true
	srv := New(cfg, rec.run, zerolog.Nop())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, githubRequest(t, "issues", "s3cret", issuesPayload("closed", "acme/widgets", 7)))
	assert.Equal(t, http.StatusOK, w.Code)
	srv.Wait()
	assert.Empty(t, rec.calls)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(testConfig(), (&recordingRun{}).run, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}
