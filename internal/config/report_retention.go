package config

import (
	"fmt"
	"os"
	"strconv"
)

// ReportRetentionConfig controls pruning of persisted run reports
type ReportRetentionConfig struct {
	// RetentionDays is how long reports are kept (in days).
	// 0 disables age-based pruning.
	// Default: 30, Range: 0-3650
	RetentionDays int

	// MaxReports is the maximum number of reports kept in the report directory.
	// Oldest reports are removed first. 0 means unlimited.
	// Default: 500, Range: 0-100000
	MaxReports int

	// PruneEnabled controls whether the sink prunes after each write
	// Default: true
	PruneEnabled bool
}

// DefaultReportRetentionConfig returns the default report retention configuration
func DefaultReportRetentionConfig() ReportRetentionConfig {
	return ReportRetentionConfig{
		RetentionDays: 30,
		MaxReports:    500,
		PruneEnabled:  true,
	}
}

// Validate checks if the configuration has valid values
func (c ReportRetentionConfig) Validate() error {
	if c.RetentionDays < 0 || c.RetentionDays > 3650 {
		return fmt.Errorf("retention_days must be between 0 and 3650 (got %d)", c.RetentionDays)
	}
	if c.MaxReports < 0 {
		return fmt.Errorf("max_reports cannot be negative (got %d)", c.MaxReports)
	}
	if c.MaxReports > 100000 {
		return fmt.Errorf("max_reports too large (got %d, max 100000)", c.MaxReports)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c ReportRetentionConfig) String() string {
	return fmt.Sprintf(
		"ReportRetentionConfig{RetentionDays: %d, MaxReports: %d, PruneEnabled: %t}",
		c.RetentionDays, c.MaxReports, c.PruneEnabled,
	)
}

// ReportRetentionConfigFromEnv creates a ReportRetentionConfig from
// environment variables, falling back to defaults
//
// Environment variables:
//   - DUPSWEEP_REPORT_RETENTION_DAYS: days to keep reports, 0 for no age limit (default: 30)
//   - DUPSWEEP_REPORT_MAX_FILES: maximum reports kept, 0 for unlimited (default: 500)
//   - DUPSWEEP_REPORT_PRUNE: prune after each write (default: true)
//
// Returns an error if any environment variable has an invalid value.
func ReportRetentionConfigFromEnv() (ReportRetentionConfig, error) {
	cfg := DefaultReportRetentionConfig()

	if err := parseEnvInt("DUPSWEEP_REPORT_RETENTION_DAYS", &cfg.RetentionDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("DUPSWEEP_REPORT_MAX_FILES", &cfg.MaxReports); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("DUPSWEEP_REPORT_PRUNE", &cfg.PruneEnabled); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid report retention configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
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
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
