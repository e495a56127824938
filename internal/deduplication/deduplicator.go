package deduplication

import (
	"context"
	"fmt"

	"github.com/steveyegge/dupsweep/internal/types"
)

// Deduplicator groups a fetched issue batch into duplicate sets.
//
// Implementations never call the tracker; they operate on the snapshot
// they are given and keep no state between calls.
type Deduplicator interface {
	// Cluster groups issues into DuplicateGroups. An issue appears in at
	// most one group, either as primary or as a duplicate.
	Cluster(ctx context.Context, issues []types.IssueRecord) (*ClusterResult, error)

	// FindSimilar ranks the issues that score at or above the threshold
	// against target. The target itself is never returned.
	FindSimilar(ctx context.Context, target types.IssueRecord, issues []types.IssueRecord) ([]types.DuplicateMatch, error)
}

// ClusterResult is the output of one clustering pass
type ClusterResult struct {
	// Groups are emitted in the fetch order of their primaries
	Groups []types.DuplicateGroup `json:"groups"`

	Stats ClusterStats `json:"stats"`
}

// ClusterStats provides metrics about a clustering pass
type ClusterStats struct {
	// IssuesScanned is the number of issues in the batch
	IssuesScanned int `json:"issues_scanned"`

	// Comparisons is the number of pairs scored
	Comparisons int `json:"comparisons"`

	// GroupCount is the number of groups emitted
	GroupCount int `json:"group_count"`

	// DuplicateCount is the number of issues placed in a group as a duplicate
	DuplicateCount int `json:"duplicate_count"`

	// UngroupedCount is the number of issues in no group
	UngroupedCount int `json:"ungrouped_count"`

	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Validate checks that stats agree with the groups and that no issue is in
// more than one group
func (r *ClusterResult) Validate() error {
	if r.Stats.GroupCount != len(r.Groups) {
		return fmt.Errorf("stats.group_count (%d) does not match groups length (%d)",
			r.Stats.GroupCount, len(r.Groups))
	}

	seen := make(map[int]int)
	duplicates := 0
	for i, g := range r.Groups {
		if len(g.Duplicates) == 0 {
			return fmt.Errorf("group %d (primary #%d) has no duplicates", i, g.Primary)
		}
		duplicates += len(g.Duplicates)
		for _, n := range g.Members() {
			if prev, ok := seen[n]; ok {
				return fmt.Errorf("issue #%d appears in group %d and group %d", n, prev, i)
			}
			seen[n] = i
		}
	}

	if r.Stats.DuplicateCount != duplicates {
		return fmt.Errorf("stats.duplicate_count (%d) does not match grouped duplicates (%d)",
			r.Stats.DuplicateCount, duplicates)
	}
	grouped := duplicates + len(r.Groups)
	if r.Stats.IssuesScanned != grouped+r.Stats.UngroupedCount {
		return fmt.Errorf("stats.issues_scanned (%d) does not match grouped + ungrouped (%d)",
			r.Stats.IssuesScanned, grouped+r.Stats.UngroupedCount)
	}
	return nil
}
