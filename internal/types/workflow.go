package types

import (
	"fmt"
	"time"
)

// Mode identifies which workflow ran
type Mode string

const (
	ModeAnalysis  Mode = "analysis"
	ModeCheck     Mode = "check"
	ModeScheduled Mode = "scheduled"
	ModeWebhook   Mode = "webhook"
)

// IsValid checks if the mode value is valid
func (m Mode) IsValid() bool {
	switch m {
	case ModeAnalysis, ModeCheck, ModeScheduled, ModeWebhook:
		return true
	}
	return false
}

// ActionStatus is the outcome recorded for one duplicate during remediation
type ActionStatus string

const (
	// ActionNone means nothing was sent to the tracker (dry-run)
	ActionNone ActionStatus = "none"
	// ActionClosed means the duplicate was commented, labeled and closed
	ActionClosed ActionStatus = "closed"
	// ActionFlagged means the duplicate was commented and labeled for manual review
	ActionFlagged ActionStatus = "flagged"
	// ActionDeferred means the per-run batch cap was reached before this duplicate
	ActionDeferred ActionStatus = "deferred"
	// ActionError means a tracker call failed for this duplicate
	ActionError ActionStatus = "error"
)

// IsValid checks if the action status value is valid
func (a ActionStatus) IsValid() bool {
	switch a {
	case ActionNone, ActionClosed, ActionFlagged, ActionDeferred, ActionError:
		return true
	}
	return false
}

// ActionRecord describes what happened (or would happen) to one duplicate
type ActionRecord struct {
	Issue      int          `json:"issue"`
	Primary    int          `json:"primary"`
	Action     ActionStatus `json:"action"`
	Intended   string       `json:"intended,omitempty"`
	Steps      []string     `json:"steps,omitempty"`
	DryRun     bool         `json:"dry_run"`
	Similarity float64      `json:"similarity"`
	Error      string       `json:"error,omitempty"`
}

// ReportSummary aggregates the action records of a report
type ReportSummary struct {
	Groups     int `json:"groups"`
	Duplicates int `json:"duplicates"`
	Closed     int `json:"closed"`
	Flagged    int `json:"flagged"`
	Deferred   int `json:"deferred"`
	Errors     int `json:"errors"`
}

// Report is the nested payload of a WorkflowResult
type Report struct {
	RunID         string           `json:"run_id"`
	Mode          Mode             `json:"mode"`
	Repository    string           `json:"repository"`
	Profile       string           `json:"profile"`
	ProfileSource string           `json:"profile_source"`
	Threshold     float64          `json:"threshold"`
	Algorithm     Algorithm        `json:"algorithm"`
	DryRun        bool             `json:"dry_run"`
	MaxDaysOld    int              `json:"max_days_old,omitempty"`
	IssuesScanned int              `json:"issues_scanned"`
	Comparisons   int              `json:"comparisons"`
	Target        *DuplicateMatch  `json:"target,omitempty"`
	Candidates    []DuplicateMatch `json:"candidates,omitempty"`
	Groups        []DuplicateGroup `json:"groups"`
	Actions       []ActionRecord   `json:"actions,omitempty"`
	Errors        []string         `json:"errors,omitempty"`
	Summary       ReportSummary    `json:"summary"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// Summarize recomputes Summary from Groups and Actions
func (r *Report) Summarize() {
	s := ReportSummary{Groups: len(r.Groups)}
	for _, g := range r.Groups {
		s.Duplicates += len(g.Duplicates)
	}
	for _, a := range r.Actions {
		switch a.Action {
		case ActionClosed:
			s.Closed++
		case ActionFlagged:
			s.Flagged++
		case ActionDeferred:
			s.Deferred++
		case ActionError:
			s.Errors++
		}
	}
	r.Summary = s
}

// WorkflowResult is the externally visible artifact of one invocation
type WorkflowResult struct {
	Mode                Mode      `json:"mode"`
	Repository          string    `json:"repository"`
	Timestamp           time.Time `json:"timestamp"`
	Success             bool      `json:"success"`
	Report              *Report   `json:"report,omitempty"`
	Error               string    `json:"error,omitempty"`
	DuplicatesProcessed int       `json:"duplicates_processed"`
	ExecutionTimeMs     int64     `json:"execution_time_ms"`
	ReportPath          string    `json:"report_path,omitempty"`
}

// Validate checks the result invariants: a report or an error is always present
func (r *WorkflowResult) Validate() error {
	if !r.Mode.IsValid() {
		return fmt.Errorf("invalid mode: %s", r.Mode)
	}
	if r.Report == nil && r.Error == "" {
		return fmt.Errorf("result must carry a report or an error")
	}
	if r.Success && r.Error != "" {
		return fmt.Errorf("successful result cannot carry an error")
	}
	if !r.Success && r.Error == "" {
		return fmt.Errorf("failed result must carry an error")
	}
	if r.DuplicatesProcessed < 0 {
		return fmt.Errorf("duplicates_processed cannot be negative (got %d)", r.DuplicatesProcessed)
	}
	return nil
}
