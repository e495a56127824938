// Package similarity scores how alike two issues are.
//
// A score blends four weighted fields: title text, body text, labels, and
// metadata (author, creation time, milestone, assignees). Text fields are
// compared with a selectable algorithm; the default "combined" algorithm
// mixes token Jaccard, term-frequency cosine, and bigram Jaccard. The
// standalone "tfidf" algorithm weights terms with a Corpus built from the
// current batch.
//
// Every function here is pure. Missing data lowers a score, it never
// produces an error.
package similarity

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/steveyegge/dupsweep/internal/types"
)

// Field weights. They are not normalized on use; Weights.Validate checks the sum.
const (
	DefaultTitleWeight    = 0.35
	DefaultBodyWeight     = 0.35
	DefaultLabelsWeight   = 0.15
	DefaultMetadataWeight = 0.15
)

// Blend used by the combined text algorithm. Tuned independently of the
// field weights above.
const (
	CombinedJaccardWeight = 0.3
	CombinedCosineWeight  = 0.5
	CombinedBigramWeight  = 0.2
)

// Confidence evidence increments
const (
	baseConfidence     = 0.5
	titlesEvidence     = 0.1
	longBodiesEvidence = 0.2
	labelsEvidence     = 0.1
	commentsEvidence   = 0.1

	// LongBodyThreshold is the body length (runes) above which a body counts as detailed
	LongBodyThreshold = 100
)

// Weights are the per-field contributions to the overall score
type Weights struct {
	Title    float64 `json:"title" yaml:"title"`
	Body     float64 `json:"body" yaml:"body"`
	Labels   float64 `json:"labels" yaml:"labels"`
	Metadata float64 `json:"metadata" yaml:"metadata"`
}

// DefaultWeights returns 0.35/0.35/0.15/0.15
func DefaultWeights() Weights {
	return Weights{
		Title:    DefaultTitleWeight,
		Body:     DefaultBodyWeight,
		Labels:   DefaultLabelsWeight,
		Metadata: DefaultMetadataWeight,
	}
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Title + w.Body + w.Labels + w.Metadata
}

// Validate requires non-negative weights summing to 1 (±1e-6)
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"title": w.Title, "body": w.Body, "labels": w.Labels, "metadata": w.Metadata} {
		if v < 0 {
			return fmt.Errorf("%s weight cannot be negative (got %.2f)", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0 (got %.4f)", w.Sum())
	}
	return nil
}

// Options configures a Scorer
type Options struct {
	Algorithm types.Algorithm
	Weights   Weights
}

// DefaultOptions returns the combined algorithm with default weights
func DefaultOptions() Options {
	return Options{
		Algorithm: types.AlgorithmCombined,
		Weights:   DefaultWeights(),
	}
}

// Validate checks the algorithm and the weights
func (o Options) Validate() error {
	if !o.Algorithm.IsValid() {
		return fmt.Errorf("unknown algorithm: %q", o.Algorithm)
	}
	return o.Weights.Validate()
}

// Scorer computes SimilarityResults for document pairs of one batch
type Scorer struct {
	opts   Options
	corpus *Corpus
}

// NewScorer creates a scorer. An unknown algorithm falls back to combined;
// corpus may be nil when the tfidf algorithm is not used.
func NewScorer(opts Options, corpus *Corpus) *Scorer {
	if !opts.Algorithm.IsValid() {
		opts.Algorithm = types.AlgorithmCombined
	}
	return &Scorer{opts: opts, corpus: corpus}
}

// Algorithm returns the text algorithm in use
func (s *Scorer) Algorithm() types.Algorithm {
	return s.opts.Algorithm
}

// Score compares a and b. Score(a,b) and Score(b,a) are identical.
func (s *Scorer) Score(a, b Document) types.SimilarityResult {
	title := s.TextSimilarity(a.TitleTokens, b.TitleTokens)
	body := s.TextSimilarity(a.BodyTokens, b.BodyTokens)
	labels := LabelSimilarity(a.Labels, b.Labels)
	meta := MetadataSimilarity(a, b)

	w := s.opts.Weights
	overall := w.Title*title + w.Body*body + w.Labels*labels + w.Metadata*meta

	return types.SimilarityResult{
		Overall:    clamp(overall),
		Title:      title,
		Body:       body,
		Labels:     labels,
		Metadata:   meta,
		Confidence: Confidence(a, b),
		Algorithm:  s.opts.Algorithm,
	}
}

// TextSimilarity compares two token sequences with the configured algorithm
func (s *Scorer) TextSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if slices.Equal(a, b) {
		return 1.0
	}

	switch s.opts.Algorithm {
	case types.AlgorithmJaccard:
		return Jaccard(a, b)
	case types.AlgorithmTFIDF:
		return CosineTFIDF(a, b, s.corpus)
	case types.AlgorithmLevenshtein:
		return NormalizedLevenshtein(strings.Join(a, " "), strings.Join(b, " "))
	default:
		return Combined(a, b)
	}
}

// Combined blends token Jaccard, term-frequency cosine and bigram Jaccard
func Combined(a, b []string) float64 {
	return clamp(CombinedJaccardWeight*Jaccard(a, b) +
		CombinedCosineWeight*CosineTF(a, b) +
		CombinedBigramWeight*NGramJaccard(a, b, 2))
}

// MetadataSimilarity averages the signals present on both documents:
// same author, creation-time proximity, shared milestone, assignee overlap.
// With no shared signal the result is 0.
func MetadataSimilarity(a, b Document) float64 {
	var total float64
	signals := 0

	if a.Author != "" && b.Author != "" {
		signals++
		if strings.EqualFold(a.Author, b.Author) {
			total += 1.0
		}
	}
	if !a.CreatedAt.IsZero() && !b.CreatedAt.IsZero() {
		signals++
		total += TimeProximity(a.CreatedAt, b.CreatedAt)
	}
	if a.Milestone != "" && b.Milestone != "" {
		signals++
		if strings.EqualFold(a.Milestone, b.Milestone) {
			total += 1.0
		}
	}
	if len(a.Assignees) > 0 && len(b.Assignees) > 0 {
		signals++
		total += Jaccard(a.Assignees, b.Assignees)
	}

	if signals == 0 {
		return 0.0
	}
	return clamp(total / float64(signals))
}

// Confidence estimates how much evidence backs a score. It starts at 0.5
// and rises when both issues have titles, detailed bodies, labels, and
// existing discussion.
func Confidence(a, b Document) float64 {
	c := baseConfidence
	if a.TitleLen > 0 && b.TitleLen > 0 {
		c += titlesEvidence
	}
	if a.BodyLen > LongBodyThreshold && b.BodyLen > LongBodyThreshold {
		c += longBodiesEvidence
	}
	if len(a.Labels) > 0 && len(b.Labels) > 0 {
		c += labelsEvidence
	}
	if a.CommentCount > 0 && b.CommentCount > 0 {
		c += commentsEvidence
	}
	return math.Min(c, 1.0)
}
