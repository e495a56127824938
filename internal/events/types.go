package events

import (
	"time"
)

// EventType represents the type of event emitted during a workflow run.
type EventType string

const (
	// EventTypeRunStarted indicates a workflow invocation began
	EventTypeRunStarted EventType = "run_started"
	// EventTypeProfileResolved indicates the profile lookup finished
	EventTypeProfileResolved EventType = "profile_resolved"
	// EventTypeFetchCompleted indicates open issues were listed
	EventTypeFetchCompleted EventType = "fetch_completed"
	// EventTypeClusterCompleted indicates the duplicate clustering pass finished
	EventTypeClusterCompleted EventType = "cluster_completed"
	// EventTypeCandidatesFound indicates check mode ranked candidates for one issue
	EventTypeCandidatesFound EventType = "candidates_found"
	// EventTypeRemediationAction indicates one duplicate was handled by the executor
	EventTypeRemediationAction EventType = "remediation_action"
	// EventTypeReportWritten indicates the report was persisted
	EventTypeReportWritten EventType = "report_written"
	// EventTypeRunCompleted indicates the invocation finished, successfully or not
	EventTypeRunCompleted EventType = "run_completed"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error events
	SeverityError EventSeverity = "error"
)

// Event is a progress notification from a workflow run.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// RunID ties the event to one invocation
	RunID string `json:"run_id"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data,omitempty"`
}

// ProgressFunc receives events as they happen. It is called synchronously
// from the run, so it must not block.
type ProgressFunc func(*Event)

// Emit calls fn with event when both are non-nil
func (fn ProgressFunc) Emit(event *Event) {
	if fn == nil || event == nil {
		return
	}
	fn(event)
}

// RunStartedData contains structured data for run start events.
type RunStartedData struct {
	Mode       string `json:"mode"`
	Repository string `json:"repository"`
	Profile    string `json:"profile"`
	DryRun     bool   `json:"dry_run"`
}

// ProfileResolvedData contains structured data for profile lookups.
type ProfileResolvedData struct {
	Profile string `json:"profile"`
	// Source is "found" or "default"
	Source  string `json:"source"`
	Warning string `json:"warning,omitempty"`
}

// FetchCompletedData contains structured data for issue listing.
type FetchCompletedData struct {
	IssueCount int   `json:"issue_count"`
	DurationMs int64 `json:"duration_ms"`
}

// ClusterCompletedData contains structured data for clustering results.
type ClusterCompletedData struct {
	IssuesScanned    int   `json:"issues_scanned"`
	Comparisons      int   `json:"comparisons"`
	GroupCount       int   `json:"group_count"`
	DuplicateCount   int   `json:"duplicate_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// CandidatesFoundData contains structured data for check mode results.
type CandidatesFoundData struct {
	Issue      int `json:"issue"`
	Candidates int `json:"candidates"`
}

// RemediationActionData contains structured data for one executor action.
type RemediationActionData struct {
	Issue      int     `json:"issue"`
	Primary    int     `json:"primary"`
	Action     string  `json:"action"`
	DryRun     bool    `json:"dry_run"`
	Similarity float64 `json:"similarity"`
	Error      string  `json:"error,omitempty"`
}

// ReportWrittenData contains structured data for a persisted report.
type ReportWrittenData struct {
	Path string `json:"path"`
}

// RunCompletedData contains structured data for run completion.
type RunCompletedData struct {
	Success             bool   `json:"success"`
	DuplicatesProcessed int    `json:"duplicates_processed"`
	ExecutionTimeMs     int64  `json:"execution_time_ms"`
	Error               string `json:"error,omitempty"`
}
