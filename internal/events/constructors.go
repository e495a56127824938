package events

import (
	"time"

	"github.com/google/uuid"
)

// NewEvent creates an event with no structured data.
func NewEvent(eventType EventType, runID string, severity EventSeverity, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     runID,
		Severity:  severity,
		Message:   message,
	}
}

// NewRunStartedEvent creates a run start event with type-safe data.
func NewRunStartedEvent(runID, message string, data RunStartedData) (*Event, error) {
	event := NewEvent(EventTypeRunStarted, runID, SeverityInfo, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewProfileResolvedEvent creates a profile lookup event. A substituted
// default is reported as a warning.
func NewProfileResolvedEvent(runID, message string, data ProfileResolvedData) (*Event, error) {
	severity := SeverityInfo
	if data.Warning != "" {
		severity = SeverityWarning
	}
	event := NewEvent(EventTypeProfileResolved, runID, severity, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewFetchCompletedEvent creates a fetch event with type-safe data.
func NewFetchCompletedEvent(runID, message string, data FetchCompletedData) (*Event, error) {
	event := NewEvent(EventTypeFetchCompleted, runID, SeverityInfo, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewClusterCompletedEvent creates a clustering event with type-safe data.
func NewClusterCompletedEvent(runID, message string, data ClusterCompletedData) (*Event, error) {
	event := NewEvent(EventTypeClusterCompleted, runID, SeverityInfo, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewCandidatesFoundEvent creates a check mode event with type-safe data.
func NewCandidatesFoundEvent(runID, message string, data CandidatesFoundData) (*Event, error) {
	event := NewEvent(EventTypeCandidatesFound, runID, SeverityInfo, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewRemediationActionEvent creates an executor action event. Failed
// actions are reported with error severity.
func NewRemediationActionEvent(runID, message string, data RemediationActionData) (*Event, error) {
	severity := SeverityInfo
	if data.Error != "" {
		severity = SeverityError
	}
	event := NewEvent(EventTypeRemediationAction, runID, severity, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewReportWrittenEvent creates a report event with type-safe data.
func NewReportWrittenEvent(runID, message string, data ReportWrittenData) (*Event, error) {
	event := NewEvent(EventTypeReportWritten, runID, SeverityInfo, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewRunCompletedEvent creates a completion event. Failed runs are reported
// with error severity.
func NewRunCompletedEvent(runID, message string, data RunCompletedData) (*Event, error) {
	severity := SeverityInfo
	if !data.Success {
		severity = SeverityError
	}
	event := NewEvent(EventTypeRunCompleted, runID, severity, message)
	if err := event.SetData(data); err != nil {
		return nil, err
	}
	return event, nil
}
