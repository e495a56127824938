package workflow

import (
	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/deduplication"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Age windows imposed by the unattended modes
const (
	ScheduledMaxDaysOld = 30
	WebhookMaxDaysOld   = 1
)

// Invocation describes one trigger of the workflow
type Invocation struct {
	// Repository is the owner/name the client is bound to
	Repository string

	// Profile names the profile to load; empty means moderate
	Profile string

	// Issue selects check mode when positive
	Issue int

	// Scheduled marks a timer-driven sweep
	Scheduled bool

	// Webhook marks an event-driven run
	Webhook bool

	// ForceDryRun disables remediation regardless of the profile
	ForceDryRun bool
}

// SelectMode applies the mode precedence: an explicit issue always means
// check, then scheduled, then webhook, otherwise analysis. A webhook that
// names an issue therefore runs as check.
func SelectMode(inv Invocation) types.Mode {
	switch {
	case inv.Issue > 0:
		return types.ModeCheck
	case inv.Scheduled:
		return types.ModeScheduled
	case inv.Webhook:
		return types.ModeWebhook
	default:
		return types.ModeAnalysis
	}
}

// BuildClusterConfig derives the clustering configuration for mode from a
// profile. Dry-run follows autoClose, except that check and webhook never
// mutate. Scheduled sweeps look back at most ScheduledMaxDaysOld days and
// webhook sweeps WebhookMaxDaysOld.
func BuildClusterConfig(profile config.Profile, mode types.Mode) deduplication.Config {
	profile = profile.WithDefaults()

	cfg := deduplication.DefaultConfig()
	cfg.Threshold = profile.SimilarityThreshold
	cfg.MaxDaysOld = profile.MaxDaysOld
	cfg.IncludeOnlyLabels = profile.IncludeOnlyLabels
	cfg.ExcludeLabels = profile.ExcludeLabels
	cfg.DryRun = profile.DryRun()
	cfg.Algorithm = profile.Algorithm
	cfg.Weights = profile.FieldWeights()

	switch mode {
	case types.ModeCheck:
		cfg.DryRun = true
	case types.ModeScheduled:
		if cfg.MaxDaysOld <= 0 || cfg.MaxDaysOld > ScheduledMaxDaysOld {
			cfg.MaxDaysOld = ScheduledMaxDaysOld
		}
	case types.ModeWebhook:
		cfg.MaxDaysOld = WebhookMaxDaysOld
		cfg.DryRun = true
	}
	return cfg
}
