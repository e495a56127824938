// Package deduplication groups near-duplicate issues.
//
// # Overview
//
// A run fetches the open issues of one repository, normalizes their text,
// and hands them to a Deduplicator. The clusterer walks the issues in fetch
// order and, for each issue not yet claimed by a group, scores it against
// every later unclaimed issue. Pairs at or above the threshold join the
// earlier issue's group, so the first-encountered issue is always the
// primary.
//
// # Non-transitive grouping
//
// Membership is decided only against the primary. Given A~B and B~C with
// A and C below the threshold, B joins A's group and C stays available to
// start a group of its own with a later issue. Groups are never merged.
//
// # Check mode
//
// FindSimilar scores one target against a batch and returns the matches at
// or above the threshold, best first. It never forms groups.
//
// # Configuration
//
// DefaultConfig mirrors the moderate profile: threshold 0.85, the combined
// text algorithm, default field weights, and no age limit. ApplyEnv layers
// DUPSWEEP_DEDUP_* overrides on top of a profile-derived config.
//
// Usage:
//
//	dedup, err := deduplication.NewTextDeduplicator(cfg, textnorm.New(textnorm.DefaultOptions()), logger)
//	if err != nil {
//	    return err
//	}
//	result, err := dedup.Cluster(ctx, issues)
//	if err != nil {
//	    return err
//	}
//	for _, g := range result.Groups {
//	    fmt.Printf("#%d has %d duplicates\n", g.Primary, len(g.Duplicates))
//	}
package deduplication
