package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/deduplication"
	"github.com/steveyegge/dupsweep/internal/events"
	"github.com/steveyegge/dupsweep/internal/remediation"
	"github.com/steveyegge/dupsweep/internal/telemetry"
	"github.com/steveyegge/dupsweep/internal/tracker"
	"github.com/steveyegge/dupsweep/internal/types"
)

// runner executes one mode. A returned error is a fetch-class failure and
// fails the whole invocation.
type runner interface {
	run(ctx context.Context, rc *runContext) (*types.Report, error)
}

// runContext is the per-invocation state handed to a runner
type runContext struct {
	runID    string
	mode     types.Mode
	inv      Invocation
	lookup   config.ProfileLookup
	cfg      deduplication.Config
	client   tracker.Client
	logger   zerolog.Logger
	progress events.ProgressFunc
	now      time.Time
	pageSize int
	maxPages int
}

func (rc *runContext) listOptions() tracker.ListOptions {
	return tracker.ListOptions{
		IncludeOnlyLabels: rc.cfg.IncludeOnlyLabels,
		ExcludeLabels:     rc.cfg.ExcludeLabels,
		MaxDaysOld:        rc.cfg.MaxDaysOld,
		PageSize:          rc.pageSize,
		MaxPages:          rc.maxPages,
		Now:               rc.now,
	}
}

func (rc *runContext) newReport() *types.Report {
	return &types.Report{
		RunID:         rc.runID,
		Mode:          rc.mode,
		Repository:    rc.inv.Repository,
		Profile:       rc.lookup.Name,
		ProfileSource: string(rc.lookup.Source),
		Threshold:     rc.cfg.Threshold,
		Algorithm:     rc.cfg.Algorithm,
		DryRun:        rc.cfg.DryRun,
		MaxDaysOld:    rc.cfg.MaxDaysOld,
		Groups:        []types.DuplicateGroup{},
		GeneratedAt:   rc.now,
	}
}

func (rc *runContext) emit(event *events.Event, err error) {
	if err != nil {
		rc.logger.Warn().Err(err).Msg("failed to build progress event")
		return
	}
	rc.progress.Emit(event)
}

// fetch lists open issues under the run's filters
func (rc *runContext) fetch(ctx context.Context) ([]types.IssueRecord, error) {
	sp := telemetry.StartSpan(ctx, "workflow.fetch")
	defer sp.End()

	start := time.Now()
	issues, err := rc.client.ListOpenIssues(sp.Context(), rc.listOptions())
	if err != nil {
		sp.RecordError(err)
		return nil, fmt.Errorf("fetching open issues: %w", err)
	}
	sp.Span().SetAttributes(attribute.Int("dupsweep.issues", len(issues)))

	rc.logger.Info().Int("issues", len(issues)).Int("max_days_old", rc.cfg.MaxDaysOld).Msg("fetched open issues")
	rc.emit(events.NewFetchCompletedEvent(rc.runID,
		fmt.Sprintf("Fetched %d open issues", len(issues)),
		events.FetchCompletedData{IssueCount: len(issues), DurationMs: time.Since(start).Milliseconds()}))
	return issues, nil
}

// sweepRunner clusters every open issue and remediates the duplicates.
// Used by analysis, scheduled and webhook sweeps; the cluster config
// decides whether remediation is live.
type sweepRunner struct{}

func (sweepRunner) run(ctx context.Context, rc *runContext) (*types.Report, error) {
	issues, err := rc.fetch(ctx)
	if err != nil {
		return nil, err
	}

	dedup, err := deduplication.NewTextDeduplicator(rc.cfg, nil, rc.logger)
	if err != nil {
		return nil, err
	}

	csp := telemetry.StartSpan(ctx, "workflow.cluster")
	result, err := dedup.Cluster(csp.Context(), issues)
	if err != nil {
		csp.RecordError(err)
		csp.End()
		return nil, err
	}
	csp.Span().SetAttributes(
		attribute.Int("dupsweep.groups", result.Stats.GroupCount),
		attribute.Int("dupsweep.comparisons", result.Stats.Comparisons),
	)
	csp.End()

	rc.emit(events.NewClusterCompletedEvent(rc.runID,
		fmt.Sprintf("Found %d duplicate groups among %d issues", result.Stats.GroupCount, result.Stats.IssuesScanned),
		events.ClusterCompletedData{
			IssuesScanned:    result.Stats.IssuesScanned,
			Comparisons:      result.Stats.Comparisons,
			GroupCount:       result.Stats.GroupCount,
			DuplicateCount:   result.Stats.DuplicateCount,
			ProcessingTimeMs: result.Stats.ProcessingTimeMs,
		}))

	report := rc.newReport()
	report.IssuesScanned = result.Stats.IssuesScanned
	report.Comparisons = result.Stats.Comparisons
	if len(result.Groups) > 0 {
		report.Groups = result.Groups
	}

	rsp := telemetry.StartSpan(ctx, "workflow.remediate")
	rsp.Span().SetAttributes(attribute.Bool("dupsweep.dry_run", rc.cfg.DryRun))
	profile := rc.lookup.Profile
	exec := remediation.NewExecutor(rc.client, remediation.Config{
		DryRun:               rc.cfg.DryRun,
		DuplicateLabel:       profile.DuplicateLabel,
		CloseMessageTemplate: profile.CloseMessageTemplate,
		RequireManualReview:  profile.RequireManualReview,
		Reviewers:            profile.Reviewers,
		BatchSize:            profile.BatchSize,
	}, rc.logger).WithProgress(rc.runID, rc.progress)
	outcome := exec.Apply(rsp.Context(), result.Groups)
	rsp.Span().SetAttributes(attribute.Int("dupsweep.errors", len(outcome.Errors)))
	rsp.End()

	report.Actions = outcome.Actions
	report.Errors = outcome.Errors
	report.Summarize()
	return report, nil
}

// checkRunner ranks the open issues most similar to one target issue. It
// never mutates the tracker.
type checkRunner struct{}

func (checkRunner) run(ctx context.Context, rc *runContext) (*types.Report, error) {
	sp := telemetry.StartSpan(ctx, "workflow.fetch")
	target, err := rc.client.GetIssue(sp.Context(), rc.inv.Issue)
	if err != nil {
		sp.RecordError(err)
		sp.End()
		return nil, fmt.Errorf("fetching issue #%d: %w", rc.inv.Issue, err)
	}
	sp.End()

	issues, err := rc.fetch(ctx)
	if err != nil {
		return nil, err
	}

	dedup, err := deduplication.NewTextDeduplicator(rc.cfg, nil, rc.logger)
	if err != nil {
		return nil, err
	}

	csp := telemetry.StartSpan(ctx, "workflow.cluster")
	matches, err := dedup.FindSimilar(csp.Context(), *target, issues)
	if err != nil {
		csp.RecordError(err)
		csp.End()
		return nil, err
	}
	csp.End()

	compared := 0
	for _, issue := range issues {
		if issue.Number != target.Number {
			compared++
		}
	}

	rc.emit(events.NewCandidatesFoundEvent(rc.runID,
		fmt.Sprintf("Found %d candidates for #%d", len(matches), target.Number),
		events.CandidatesFoundData{Issue: target.Number, Candidates: len(matches)}))

	report := rc.newReport()
	report.DryRun = true
	report.IssuesScanned = compared
	report.Comparisons = compared
	report.Target = &types.DuplicateMatch{Number: target.Number, Title: target.Title}
	report.Candidates = matches
	report.Summarize()
	return report, nil
}
