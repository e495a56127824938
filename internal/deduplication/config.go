package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/steveyegge/dupsweep/internal/similarity"
	"github.com/steveyegge/dupsweep/internal/textnorm"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Config holds the clustering configuration for one run
type Config struct {
	// Threshold is the minimum overall similarity (0.0-1.0) for a pair to count
	// as duplicate. A score equal to the threshold matches.
	Threshold float64

	// MaxDaysOld limits the fetch to issues created within this many days.
	// 0 means no limit.
	MaxDaysOld int

	// IncludeOnlyLabels keeps only issues carrying at least one of these labels
	IncludeOnlyLabels []string

	// ExcludeLabels drops issues carrying any of these labels
	ExcludeLabels []string

	// DryRun records intended remediation without calling the tracker.
	// Derived from the profile's autoClose.
	DryRun bool

	// Algorithm selects the title/body text comparison
	Algorithm types.Algorithm

	// Weights are the per-field contributions to the overall score
	Weights similarity.Weights

	// Normalizer configures tokenization
	Normalizer textnorm.Options

	// MaxCandidates caps the ranked matches returned by FindSimilar (0 = unlimited)
	MaxCandidates int
}

// DefaultConfig returns the clustering configuration of the moderate profile
func DefaultConfig() Config {
	return Config{
		Threshold:     0.85,
		MaxDaysOld:    0,
		DryRun:        true,
		Algorithm:     types.AlgorithmCombined,
		Weights:       similarity.DefaultWeights(),
		Normalizer:    textnorm.DefaultOptions(),
		MaxCandidates: 10,
	}
}

// ScorerOptions returns the similarity options for this config
func (c Config) ScorerOptions() similarity.Options {
	return similarity.Options{Algorithm: c.Algorithm, Weights: c.Weights}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Threshold < 0.0 || c.Threshold > 1.0 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0 (got %.2f)", c.Threshold)
	}
	if c.MaxDaysOld < 0 {
		return fmt.Errorf("max_days_old cannot be negative (got %d)", c.MaxDaysOld)
	}
	if c.MaxDaysOld > 3650 {
		return fmt.Errorf("max_days_old too large (got %d, max 3650)", c.MaxDaysOld)
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates cannot be negative (got %d)", c.MaxCandidates)
	}
	if c.Normalizer.MinTokenLength < 0 {
		return fmt.Errorf("min_token_length cannot be negative (got %d)", c.Normalizer.MinTokenLength)
	}
	if err := c.ScorerOptions().Validate(); err != nil {
		return err
	}
	for _, label := range c.IncludeOnlyLabels {
		for _, excluded := range c.ExcludeLabels {
			if strings.EqualFold(label, excluded) {
				return fmt.Errorf("label %q is both included and excluded", label)
			}
		}
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Threshold: %.2f, MaxDaysOld: %d, Include: %v, Exclude: %v, "+
			"DryRun: %t, Algorithm: %s, Weights: %.2f/%.2f/%.2f/%.2f, MaxCandidates: %d}",
		c.Threshold, c.MaxDaysOld, c.IncludeOnlyLabels, c.ExcludeLabels,
		c.DryRun, c.Algorithm, c.Weights.Title, c.Weights.Body, c.Weights.Labels, c.Weights.Metadata,
		c.MaxCandidates,
	)
}

// ApplyEnv overrides fields from environment variables:
//   - DUPSWEEP_DEDUP_THRESHOLD: minimum similarity (0.0-1.0)
//   - DUPSWEEP_DEDUP_ALGORITHM: jaccard, tfidf, levenshtein or combined
//   - DUPSWEEP_DEDUP_MAX_DAYS_OLD: age window in days
//   - DUPSWEEP_DEDUP_MAX_CANDIDATES: ranked matches kept in check mode
//   - DUPSWEEP_DEDUP_STEM: enable stemming
//
// Returns an error if any variable has an invalid value or the result fails Validate.
func (c Config) ApplyEnv() (Config, error) {
	if err := parseEnvFloat("DUPSWEEP_DEDUP_THRESHOLD", &c.Threshold); err != nil {
		return c, err
	}
	if value := os.Getenv("DUPSWEEP_DEDUP_ALGORITHM"); value != "" {
		c.Algorithm = types.Algorithm(strings.ToLower(value))
	}
	if err := parseEnvInt("DUPSWEEP_DEDUP_MAX_DAYS_OLD", &c.MaxDaysOld); err != nil {
		return c, err
	}
	if err := parseEnvInt("DUPSWEEP_DEDUP_MAX_CANDIDATES", &c.MaxCandidates); err != nil {
		return c, err
	}
	if err := parseEnvBool("DUPSWEEP_DEDUP_STEM", &c.Normalizer.Stem); err != nil {
		return c, err
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return c, nil
}

// ConfigFromEnv applies environment overrides to DefaultConfig
func ConfigFromEnv() (Config, error) {
	return DefaultConfig().ApplyEnv()
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
