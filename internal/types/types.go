package types

import (
	"fmt"
	"strings"
	"time"
)

// IssueRecord is a read-only snapshot of a tracker issue taken at fetch time.
// Nothing in a run mutates it; remediation goes through the tracker client.
type IssueRecord struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Labels        []string  `json:"labels,omitempty"`
	Author        string    `json:"author,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Assignees     []string  `json:"assignees,omitempty"`
	CommentCount  int       `json:"comment_count"`
	Milestone     string    `json:"milestone,omitempty"`
	URL           string    `json:"url,omitempty"`
	IsPullRequest bool      `json:"is_pull_request,omitempty"`
}

// Validate checks if the issue has valid field values
func (i *IssueRecord) Validate() error {
	if i.Number <= 0 {
		return fmt.Errorf("number must be positive (got %d)", i.Number)
	}
	if i.CommentCount < 0 {
		return fmt.Errorf("comment_count cannot be negative (got %d)", i.CommentCount)
	}
	return nil
}

// HasLabel reports whether the issue carries the label, ignoring case.
func (i *IssueRecord) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// Ref returns the short "#N" form used in comments and reports.
func (i *IssueRecord) Ref() string {
	return IssueRef(i.Number)
}

// IssueRef formats an issue number as "#N".
func IssueRef(number int) string {
	return fmt.Sprintf("#%d", number)
}

// State is the tracker-side open/closed state of an issue
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// IsValid checks if the state value is valid
func (s State) IsValid() bool {
	switch s {
	case StateOpen, StateClosed:
		return true
	}
	return false
}

// Algorithm selects how title and body text are compared
type Algorithm string

const (
	AlgorithmJaccard     Algorithm = "jaccard"
	AlgorithmTFIDF       Algorithm = "tfidf"
	AlgorithmLevenshtein Algorithm = "levenshtein"
	AlgorithmCombined    Algorithm = "combined"
)

// IsValid checks if the algorithm value is valid
func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmJaccard, AlgorithmTFIDF, AlgorithmLevenshtein, AlgorithmCombined:
		return true
	}
	return false
}

// SimilarityResult is the per-pair score produced by the similarity scorer.
// All values are in [0,1].
type SimilarityResult struct {
	Overall    float64   `json:"overall"`
	Title      float64   `json:"title"`
	Body       float64   `json:"body"`
	Labels     float64   `json:"labels"`
	Metadata   float64   `json:"metadata"`
	Confidence float64   `json:"confidence"`
	Algorithm  Algorithm `json:"algorithm"`
}

// Validate checks that every score lies in [0,1]
func (r SimilarityResult) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"overall", r.Overall},
		{"title", r.Title},
		{"body", r.Body},
		{"labels", r.Labels},
		{"metadata", r.Metadata},
		{"confidence", r.Confidence},
	}
	for _, f := range fields {
		if f.value < 0.0 || f.value > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0 (got %.4f)", f.name, f.value)
		}
	}
	return nil
}

// DuplicateMatch is one issue judged similar to a primary (or check target)
type DuplicateMatch struct {
	Number     int              `json:"number"`
	Title      string           `json:"title"`
	Similarity SimilarityResult `json:"similarity"`
}

// DuplicateGroup is a primary issue plus its duplicates for one run.
// Duplicates are kept in fetch order.
type DuplicateGroup struct {
	Primary      int              `json:"primary"`
	PrimaryTitle string           `json:"primary_title"`
	Duplicates   []DuplicateMatch `json:"duplicates"`
}

// DuplicateNumbers returns the duplicate issue numbers in group order
func (g DuplicateGroup) DuplicateNumbers() []int {
	numbers := make([]int, 0, len(g.Duplicates))
	for _, d := range g.Duplicates {
		numbers = append(numbers, d.Number)
	}
	return numbers
}

// Members returns the primary followed by every duplicate
func (g DuplicateGroup) Members() []int {
	return append([]int{g.Primary}, g.DuplicateNumbers()...)
}
