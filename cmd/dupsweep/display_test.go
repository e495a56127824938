package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/dupsweep/internal/events"
	"github.com/steveyegge/dupsweep/internal/types"
)

func TestExtractEventMetadata(t *testing.T) {
	tests := []struct {
		name      string
		eventType events.EventType
		data      map[string]interface{}
		expected  string
	}{
		{
			name:      "cluster completed",
			eventType: events.EventTypeClusterCompleted,
			data: map[string]interface{}{
				"group_count":        2.0,
				"duplicate_count":    3.0,
				"comparisons":        45.0,
				"processing_time_ms": 1500.0,
			},
			expected: "2 groups | 3 dupes | 45 comps | 1.5s",
		},
		{
			name:      "cluster completed with missing fields",
			eventType: events.EventTypeClusterCompleted,
			data:      map[string]interface{}{},
			expected:  "0 groups | 0 dupes | 0 comps | 0ms",
		},
		{
			name:      "remediation action",
			eventType: events.EventTypeRemediationAction,
			data: map[string]interface{}{
				"issue":      3.0,
				"primary":    1.0,
				"action":     "closed",
				"similarity": 0.858,
			},
			expected: "#3 → #1 | closed | 86%",
		},
		{
			name:      "remediation error",
			eventType: events.EventTypeRemediationAction,
			data: map[string]interface{}{
				"issue":   3.0,
				"primary": 1.0,
				"action":  "error",
				"error":   "issue #3: close: boom",
			},
			expected: "#3 → #1 | error | 0% | issue #3: close: boom",
		},
		{
			name:      "run started dry-run",
			eventType: events.EventTypeRunStarted,
			data: map[string]interface{}{
				"repository": "acme/app",
				"profile":    "moderate",
				"dry_run":    true,
			},
			expected: "acme/app | moderate | dry-run",
		},
		{
			name:      "fetch completed",
			eventType: events.EventTypeFetchCompleted,
			data:      map[string]interface{}{"issue_count": 120, "duration_ms": 90000},
			expected:  "120 issues | 1.5m",
		},
		{
			name:      "report written falls back to path",
			eventType: events.EventTypeReportWritten,
			data:      map[string]interface{}{"path": "reports/x.json"},
			expected:  "reports/x.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &events.Event{Type: tt.eventType, Data: tt.data}
			if got := extractEventMetadata(event); got != tt.expected {
				t.Errorf("extractEventMetadata() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetEventEmoji(t *testing.T) {
	tests := []struct {
		event    events.Event
		expected string
	}{
		{events.Event{Type: events.EventTypeClusterCompleted, Severity: events.SeverityInfo}, "🔀"},
		{events.Event{Type: events.EventTypeProfileResolved, Severity: events.SeverityWarning}, "⚠️"},
		{events.Event{Type: events.EventTypeRunCompleted, Severity: events.SeverityError}, "❌"},
		{events.Event{Type: events.EventTypeRunCompleted, Severity: events.SeverityInfo}, "✅"},
		{events.Event{Type: events.EventTypeRemediationAction, Severity: events.SeverityInfo}, "ℹ️"},
	}
	for _, tt := range tests {
		if got := getEventEmoji(&tt.event); got != tt.expected {
			t.Errorf("getEventEmoji(%s/%s) = %q, want %q", tt.event.Type, tt.event.Severity, got, tt.expected)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in       string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.expected {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.expected)
		}
	}
}

func TestEventPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newEventPrinter(&buf)
	p.Print(nil)
	p.Print(&events.Event{
		Type:      events.EventTypeFetchCompleted,
		Timestamp: time.Date(2026, 5, 4, 9, 30, 15, 0, time.UTC),
		Severity:  events.SeverityInfo,
		Message:   "Fetched 4 open issues",
		Data:      map[string]interface{}{"issue_count": 4.0, "duration_ms": 12.0},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if want := "📥 [09:30:15] fetch_completed: Fetched 4 open issues"; lines[0] != want {
		t.Errorf("line 1 = %q, want %q", lines[0], want)
	}
	if want := "  4 issues | 12ms"; lines[1] != want {
		t.Errorf("line 2 = %q, want %q", lines[1], want)
	}
}

func TestPrintResult_Failed(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &types.WorkflowResult{
		Mode:            types.ModeScheduled,
		Repository:      "acme/app",
		Error:           "listing issues: boom",
		ExecutionTimeMs: 2500,
	})
	out := buf.String()
	for _, want := range []string{"=== dupsweep scheduled: acme/app ===", "✗ Run failed: listing issues: boom", "Took 2.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintResult_Check(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &types.WorkflowResult{
		Mode:       types.ModeCheck,
		Repository: "acme/app",
		Success:    true,
		Report: &types.Report{
			Profile:       "moderate",
			ProfileSource: "found",
			Threshold:     0.85,
			Algorithm:     types.AlgorithmCombined,
			DryRun:        true,
			Target:        &types.DuplicateMatch{Number: 1, Title: "Login button broken on Safari"},
			Candidates: []types.DuplicateMatch{
				{Number: 3, Title: "Safari: login button does not work", Similarity: types.SimilarityResult{Overall: 0.86}},
			},
		},
		ReportPath: "reports/duplicate-check.json",
	})
	out := buf.String()
	for _, want := range []string{
		"Profile: moderate (found) | threshold 85% | combined | dry-run",
		"Candidates for #1 Login button broken on Safari",
		"  #3 Safari: login button does not work 86%",
		"Report: reports/duplicate-check.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
