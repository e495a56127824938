package types

import (
	"strings"
	"testing"
	"time"
)

// TestIssueRecordValidate tests number and comment count validation
func TestIssueRecordValidate(t *testing.T) {
	tests := []struct {
		name        string
		issue       IssueRecord
		expectError bool
		errorMsg    string
	}{
		{
			name:  "valid issue",
			issue: IssueRecord{Number: 12, Title: "Crash on start", CreatedAt: time.Now()},
		},
		{
			name:        "zero number",
			issue:       IssueRecord{Title: "No number"},
			expectError: true,
			errorMsg:    "number must be positive",
		},
		{
			name:        "negative comment count",
			issue:       IssueRecord{Number: 3, CommentCount: -1},
			expectError: true,
			errorMsg:    "comment_count cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.issue.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIssueRecordHasLabel(t *testing.T) {
	issue := IssueRecord{Number: 1, Labels: []string{"Bug", "ui"}}

	if !issue.HasLabel("bug") {
		t.Error("HasLabel should ignore case")
	}
	if !issue.HasLabel("UI") {
		t.Error("HasLabel should ignore case")
	}
	if issue.HasLabel("docs") {
		t.Error("HasLabel reported a label the issue does not carry")
	}
}

func TestDuplicateGroupMembers(t *testing.T) {
	g := DuplicateGroup{
		Primary: 4,
		Duplicates: []DuplicateMatch{
			{Number: 7},
			{Number: 9},
		},
	}

	got := g.Members()
	want := []int{4, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("Members() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Members()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if dups := g.DuplicateNumbers(); len(dups) != 2 || dups[0] != 7 || dups[1] != 9 {
		t.Errorf("DuplicateNumbers() = %v, want [7 9]", dups)
	}
}

func TestSimilarityResultValidate(t *testing.T) {
	ok := SimilarityResult{Overall: 0.9, Title: 1, Body: 0.8, Labels: 1, Metadata: 0.5, Confidence: 0.7}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := ok
	bad.Metadata = 1.2
	err := bad.Validate()
	if err == nil || !strings.Contains(err.Error(), "metadata") {
		t.Errorf("expected metadata range error, got %v", err)
	}
}

func TestReportSummarize(t *testing.T) {
	r := &Report{
		Groups: []DuplicateGroup{
			{Primary: 1, Duplicates: []DuplicateMatch{{Number: 2}, {Number: 3}}},
			{Primary: 4, Duplicates: []DuplicateMatch{{Number: 5}}},
		},
		Actions: []ActionRecord{
			{Issue: 2, Action: ActionClosed},
			{Issue: 3, Action: ActionError},
			{Issue: 5, Action: ActionDeferred},
		},
	}
	r.Summarize()

	want := ReportSummary{Groups: 2, Duplicates: 3, Closed: 1, Deferred: 1, Errors: 1}
	if r.Summary != want {
		t.Errorf("Summary = %+v, want %+v", r.Summary, want)
	}
}

func TestWorkflowResultValidate(t *testing.T) {
	tests := []struct {
		name        string
		result      WorkflowResult
		expectError bool
	}{
		{
			name:   "successful with report",
			result: WorkflowResult{Mode: ModeAnalysis, Success: true, Report: &Report{}},
		},
		{
			name:   "failed with error",
			result: WorkflowResult{Mode: ModeCheck, Error: "fetch failed"},
		},
		{
			name:        "neither report nor error",
			result:      WorkflowResult{Mode: ModeAnalysis, Success: true},
			expectError: true,
		},
		{
			name:        "success with error",
			result:      WorkflowResult{Mode: ModeWebhook, Success: true, Report: &Report{}, Error: "boom"},
			expectError: true,
		},
		{
			name:        "unknown mode",
			result:      WorkflowResult{Mode: "nightly", Error: "x"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestModeAndActionValidity(t *testing.T) {
	for _, m := range []Mode{ModeAnalysis, ModeCheck, ModeScheduled, ModeWebhook} {
		if !m.IsValid() {
			t.Errorf("mode %q should be valid", m)
		}
	}
	if Mode("manual").IsValid() {
		t.Error("unknown mode reported valid")
	}
	for _, a := range []ActionStatus{ActionNone, ActionClosed, ActionFlagged, ActionDeferred, ActionError} {
		if !a.IsValid() {
			t.Errorf("action %q should be valid", a)
		}
	}
	if !AlgorithmCombined.IsValid() || Algorithm("bm25").IsValid() {
		t.Error("algorithm validity mismatch")
	}
}
