package server

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v66/github"
)

// Issue actions that can introduce a new duplicate
var triggerActions = map[string]bool{
	"opened":   true,
	"reopened": true,
	"edited":   true,
	// GitLab spells these differently
	"open":   true,
	"reopen": true,
	"update": true,
}

func (s *Server) handleGitHub(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, []byte(s.cfg.GitHubSecret))
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejecting github webhook")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	eventType := github.WebHookType(c.Request)
	switch eventType {
	case "ping":
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	case "issues":
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "unsupported event " + eventType})
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	issuesEvent, ok := event.(*github.IssuesEvent)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if repo := issuesEvent.GetRepo().GetFullName(); repo != "" && s.cfg.Repository != "" && !strings.EqualFold(repo, s.cfg.Repository) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "repository " + repo + " is not watched"})
		return
	}
	action := issuesEvent.GetAction()
	if !triggerActions[action] {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "action " + action})
		return
	}
	if issuesEvent.GetIssue().IsPullRequest() {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "pull request"})
		return
	}

	number := issuesEvent.GetIssue().GetNumber()
	s.logger.Info().Str("action", action).Int("issue", number).Msg("github issue webhook")
	s.trigger(c, s.invocation(number))
}

// gitlabIssueHook is the subset of the GitLab issue hook payload we read
type gitlabIssueHook struct {
	ObjectKind string `json:"object_kind"`
	Project    struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		IID    int64  `json:"iid"`
		Action string `json:"action"`
	} `json:"object_attributes"`
}

func (s *Server) handleGitLab(c *gin.Context) {
	if s.cfg.GitLabToken != "" {
		token := c.GetHeader("X-Gitlab-Token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing webhook token"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.GitLabToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	var hook gitlabIssueHook
	if err := json.Unmarshal(body, &hook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if hook.ObjectKind != "issue" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "unsupported event " + hook.ObjectKind})
		return
	}
	if repo := hook.Project.PathWithNamespace; repo != "" && s.cfg.Repository != "" && !strings.EqualFold(repo, s.cfg.Repository) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "project " + repo + " is not watched"})
		return
	}
	action := hook.ObjectAttributes.Action
	if !triggerActions[action] {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "action " + action})
		return
	}
	if hook.ObjectAttributes.IID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no issue iid in payload"})
		return
	}

	s.logger.Info().Str("action", action).Int64("iid", hook.ObjectAttributes.IID).Msg("gitlab issue webhook")
	s.trigger(c, s.invocation(int(hook.ObjectAttributes.IID)))
}
