package deduplication

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyegge/dupsweep/internal/similarity"
	"github.com/steveyegge/dupsweep/internal/textnorm"
	"github.com/steveyegge/dupsweep/internal/types"
)

// PairScorer scores two prepared documents
type PairScorer interface {
	Score(a, b similarity.Document) types.SimilarityResult
}

// Cluster greedily groups docs in order. For each unprocessed document i,
// every later unprocessed document j scoring >= threshold against i joins
// i's group and is marked processed. Membership is never decided against
// another duplicate, so grouping is not transitive. It returns the groups
// and the number of pairs scored.
func Cluster(docs []similarity.Document, scorer PairScorer, threshold float64) ([]types.DuplicateGroup, int) {
	processed := make([]bool, len(docs))
	var groups []types.DuplicateGroup
	comparisons := 0

	for i := range docs {
		if processed[i] {
			continue
		}

		var matches []types.DuplicateMatch
		for j := i + 1; j < len(docs); j++ {
			if processed[j] {
				continue
			}
			result := scorer.Score(docs[i], docs[j])
			comparisons++
			if result.Overall >= threshold {
				matches = append(matches, types.DuplicateMatch{
					Number:     docs[j].Number,
					Title:      docs[j].Title,
					Similarity: result,
				})
				processed[j] = true
			}
		}

		if len(matches) > 0 {
			processed[i] = true
			groups = append(groups, types.DuplicateGroup{
				Primary:      docs[i].Number,
				PrimaryTitle: docs[i].Title,
				Duplicates:   matches,
			})
		}
	}

	return groups, comparisons
}

// TextDeduplicator implements Deduplicator with the similarity scorer
type TextDeduplicator struct {
	cfg        Config
	normalizer *textnorm.Normalizer
	logger     zerolog.Logger
}

// Compile-time check that TextDeduplicator implements Deduplicator
var _ Deduplicator = (*TextDeduplicator)(nil)

// NewTextDeduplicator creates a deduplicator. A nil normalizer is built from cfg.Normalizer.
func NewTextDeduplicator(cfg Config, normalizer *textnorm.Normalizer, logger zerolog.Logger) (*TextDeduplicator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deduplication config: %w", err)
	}
	if normalizer == nil {
		normalizer = textnorm.New(cfg.Normalizer)
	}
	return &TextDeduplicator{
		cfg:        cfg,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "deduplication").Logger(),
	}, nil
}

// Config returns the configuration in use
func (d *TextDeduplicator) Config() Config {
	return d.cfg
}

// Cluster normalizes the batch, builds its corpus, and groups it
func (d *TextDeduplicator) Cluster(ctx context.Context, issues []types.IssueRecord) (*ClusterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clustering cancelled: %w", err)
	}
	start := time.Now()

	docs, corpus := similarity.Prepare(issues, d.normalizer)
	scorer := similarity.NewScorer(d.cfg.ScorerOptions(), corpus)
	groups, comparisons := Cluster(docs, scorer, d.cfg.Threshold)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clustering cancelled: %w", err)
	}

	duplicates := 0
	for _, g := range groups {
		duplicates += len(g.Duplicates)
	}
	result := &ClusterResult{
		Groups: groups,
		Stats: ClusterStats{
			IssuesScanned:    len(issues),
			Comparisons:      comparisons,
			GroupCount:       len(groups),
			DuplicateCount:   duplicates,
			UngroupedCount:   len(issues) - duplicates - len(groups),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}

	d.logger.Debug().
		Int("issues", len(issues)).
		Int("comparisons", comparisons).
		Int("groups", len(groups)).
		Int("duplicates", duplicates).
		Msg("clustered issues")

	return result, nil
}

// FindSimilar scores target against every other issue in the batch. The
// corpus includes the target so its terms weigh the same way as in a sweep.
// Matches are ordered by overall score descending, then issue number.
func (d *TextDeduplicator) FindSimilar(ctx context.Context, target types.IssueRecord, issues []types.IssueRecord) ([]types.DuplicateMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("similarity search cancelled: %w", err)
	}

	batch := make([]types.IssueRecord, 0, len(issues)+1)
	batch = append(batch, target)
	for _, issue := range issues {
		if issue.Number != target.Number {
			batch = append(batch, issue)
		}
	}

	docs, corpus := similarity.Prepare(batch, d.normalizer)
	scorer := similarity.NewScorer(d.cfg.ScorerOptions(), corpus)

	var matches []types.DuplicateMatch
	for _, doc := range docs[1:] {
		result := scorer.Score(docs[0], doc)
		if result.Overall >= d.cfg.Threshold {
			matches = append(matches, types.DuplicateMatch{
				Number:     doc.Number,
				Title:      doc.Title,
				Similarity: result,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity.Overall != matches[j].Similarity.Overall {
			return matches[i].Similarity.Overall > matches[j].Similarity.Overall
		}
		return matches[i].Number < matches[j].Number
	})
	if d.cfg.MaxCandidates > 0 && len(matches) > d.cfg.MaxCandidates {
		matches = matches[:d.cfg.MaxCandidates]
	}

	d.logger.Debug().
		Int("target", target.Number).
		Int("compared", len(docs)-1).
		Int("matches", len(matches)).
		Msg("found similar issues")

	return matches, nil
}
