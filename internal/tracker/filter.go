package tracker

import (
	"time"

	"github.com/steveyegge/dupsweep/internal/types"
)

// Filter keeps the issues every backend must return from ListOpenIssues:
// no pull requests, at least one include-only label when any are set, no
// excluded label, and created within the age window. Label matching ignores
// case. Order is preserved.
func Filter(issues []types.IssueRecord, opts ListOptions) []types.IssueRecord {
	since := opts.Since()
	kept := make([]types.IssueRecord, 0, len(issues))
	for _, issue := range issues {
		if Match(issue, opts.IncludeOnlyLabels, opts.ExcludeLabels, since) {
			kept = append(kept, issue)
		}
	}
	return kept
}

// Match reports whether a single issue passes the filter. A zero since
// disables the age check; issues without a creation time pass it.
func Match(issue types.IssueRecord, include, exclude []string, since time.Time) bool {
	if issue.IsPullRequest {
		return false
	}
	for _, label := range exclude {
		if issue.HasLabel(label) {
			return false
		}
	}
	if len(include) > 0 {
		found := false
		for _, label := range include {
			if issue.HasLabel(label) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !since.IsZero() && !issue.CreatedAt.IsZero() && issue.CreatedAt.Before(since) {
		return false
	}
	return true
}
