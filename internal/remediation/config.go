package remediation

import (
	"fmt"
	"strings"
)

// Template placeholders
const (
	PlaceholderPrimary    = "{primary}"
	PlaceholderDuplicate  = "{duplicate}"
	PlaceholderSimilarity = "{similarity}"
)

// DefaultReviewMessageTemplate is posted instead of the close message when
// manual review is required.
const DefaultReviewMessageTemplate = "This issue looks like a duplicate of {primary} ({similarity} similar). Flagged for manual review instead of closing."

// Config controls what the Executor does to each duplicate
type Config struct {
	// DryRun records intended actions without calling the tracker
	DryRun bool

	// DuplicateLabel is attached to every remediated duplicate
	DuplicateLabel string

	// CloseMessageTemplate is the comment posted before closing
	CloseMessageTemplate string

	// ReviewMessageTemplate is the comment posted when RequireManualReview is set.
	// Empty uses DefaultReviewMessageTemplate.
	ReviewMessageTemplate string

	// RequireManualReview comments and labels but never closes
	RequireManualReview bool

	// Reviewers are mentioned on flagged duplicates
	Reviewers []string

	// BatchSize caps the duplicates handled per run; 0 means unlimited
	BatchSize int
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if strings.TrimSpace(c.DuplicateLabel) == "" {
		return fmt.Errorf("duplicate label is required")
	}
	if !strings.Contains(c.CloseMessageTemplate, PlaceholderPrimary) {
		return fmt.Errorf("close message template must contain %s", PlaceholderPrimary)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative (got %d)", c.BatchSize)
	}
	return nil
}

// Render fills the template placeholders. Issue numbers render as #N and
// similarity as a whole percentage.
func Render(template string, primary, duplicate int, similarity float64) string {
	r := strings.NewReplacer(
		PlaceholderPrimary, fmt.Sprintf("#%d", primary),
		PlaceholderDuplicate, fmt.Sprintf("#%d", duplicate),
		PlaceholderSimilarity, fmt.Sprintf("%.0f%%", similarity*100),
	)
	return r.Replace(template)
}

// mentions formats reviewers as @handles, tolerating a leading @
func mentions(reviewers []string) string {
	handles := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		r = strings.TrimPrefix(strings.TrimSpace(r), "@")
		if r == "" {
			continue
		}
		handles = append(handles, "@"+r)
	}
	return strings.Join(handles, " ")
}
