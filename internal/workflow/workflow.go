// Package workflow orchestrates a duplicate sweep: it selects the run mode,
// resolves the profile, drives clustering and remediation, persists the
// report and dispatches notifications.
//
// Run never fails outright. Every outcome, including panics and timeouts,
// comes back as a *types.WorkflowResult.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/events"
	"github.com/steveyegge/dupsweep/internal/notify"
	"github.com/steveyegge/dupsweep/internal/report"
	"github.com/steveyegge/dupsweep/internal/telemetry"
	"github.com/steveyegge/dupsweep/internal/tracker"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Deps are the collaborators of a Workflow. Only Client is required.
type Deps struct {
	Client tracker.Client

	// Profiles resolves profile names; nil always yields the moderate default
	Profiles *config.ProfileStore

	// Sink persists results; nil skips persistence
	Sink *report.Sink

	// Notifier receives finished results; nil skips notification
	Notifier *notify.Dispatcher

	Logger   zerolog.Logger
	Progress events.ProgressFunc

	// Timeout bounds each invocation; 0 means no deadline
	Timeout time.Duration

	// PageSize and MaxPages bound listing; zero uses the tracker defaults
	PageSize int
	MaxPages int

	// EnvOverrides applies DUPSWEEP_DEDUP_* on top of the profile
	EnvOverrides bool

	// Now is the clock; nil means time.Now
	Now func() time.Time
}

// Workflow runs invocations against one tracker
type Workflow struct {
	deps    Deps
	logger  zerolog.Logger
	runners map[types.Mode]runner
}

// New creates a workflow
func New(deps Deps) *Workflow {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Workflow{
		deps:   deps,
		logger: deps.Logger.With().Str("component", "workflow").Logger(),
		runners: map[types.Mode]runner{
			types.ModeAnalysis:  sweepRunner{},
			types.ModeScheduled: sweepRunner{},
			types.ModeWebhook:   sweepRunner{},
			types.ModeCheck:     checkRunner{},
		},
	}
}

// Run executes one invocation and always returns a result
func (w *Workflow) Run(ctx context.Context, inv Invocation) (result *types.WorkflowResult) {
	start := w.deps.Now()
	mode := SelectMode(inv)
	runID := uuid.NewString()
	logger := w.logger.With().Str("run_id", runID).Str("mode", string(mode)).Logger()

	result = &types.WorkflowResult{
		Mode:       mode,
		Repository: inv.Repository,
		Timestamp:  start,
	}

	sp := telemetry.StartSpan(ctx, "workflow.run")
	sp.Span().SetAttributes(
		attribute.String("dupsweep.mode", string(mode)),
		attribute.String("dupsweep.repository", inv.Repository),
		attribute.String("dupsweep.run_id", runID),
	)
	defer sp.End()
	ctx = sp.Context()

	lookup := w.deps.Profiles.Lookup(inv.Profile)
	if lookup.UsedDefault() {
		logger.Warn().Str("profile", lookup.Name).Msg(lookup.Warning)
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("workflow panicked: %v", r)
			logger.Error().Err(err).Msg("run failed")
			sp.RecordError(err)
			result.Success = false
			result.Report = nil
			result.Error = err.Error()
			result.DuplicatesProcessed = 0
		}
		result.ExecutionTimeMs = w.deps.Now().Sub(start).Milliseconds()
		w.finish(ctx, runID, result, lookup.Profile, logger)
	}()

	cfg := BuildClusterConfig(lookup.Profile, mode)
	if inv.ForceDryRun {
		cfg.DryRun = true
	}
	if w.deps.EnvOverrides {
		overridden, err := cfg.ApplyEnv()
		if err != nil {
			logger.Warn().Err(err).Msg("ignoring invalid dedup environment overrides")
		} else {
			cfg = overridden
		}
	}

	rc := &runContext{
		runID:    runID,
		mode:     mode,
		inv:      inv,
		lookup:   lookup,
		cfg:      cfg,
		client:   w.deps.Client,
		logger:   logger,
		progress: w.deps.Progress,
		now:      start,
		pageSize: w.deps.PageSize,
		maxPages: w.deps.MaxPages,
	}

	rc.emit(events.NewRunStartedEvent(runID,
		fmt.Sprintf("Starting %s run on %s", mode, inv.Repository),
		events.RunStartedData{Mode: string(mode), Repository: inv.Repository, Profile: lookup.Name, DryRun: cfg.DryRun}))
	rc.emit(events.NewProfileResolvedEvent(runID,
		fmt.Sprintf("Using profile %s (%s)", lookup.Name, lookup.Source),
		events.ProfileResolvedData{Profile: lookup.Name, Source: string(lookup.Source), Warning: lookup.Warning}))

	logger.Info().
		Str("repository", inv.Repository).
		Str("profile", lookup.Name).
		Str("config", cfg.String()).
		Msg("starting run")

	if w.deps.Client == nil {
		w.fail(result, errors.New("no tracker client configured"), sp, logger)
		return result
	}

	runCtx := ctx
	if w.deps.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.deps.Timeout)
		defer cancel()
	}

	rep, err := w.runners[mode].run(runCtx, rc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("run exceeded %s timeout: %w", w.deps.Timeout, err)
		}
		w.fail(result, err, sp, logger)
		return result
	}

	result.Success = true
	result.Report = rep
	result.DuplicatesProcessed = processed(rep)
	return result
}

func (w *Workflow) fail(result *types.WorkflowResult, err error, sp *telemetry.Span, logger zerolog.Logger) {
	logger.Error().Err(err).Msg("run failed")
	sp.RecordError(err)
	result.Success = false
	result.Report = nil
	result.Error = err.Error()
}

// finish persists and notifies. Neither can change the outcome.
func (w *Workflow) finish(ctx context.Context, runID string, result *types.WorkflowResult, profile config.Profile, logger zerolog.Logger) {
	if w.deps.Sink != nil {
		path, err := w.deps.Sink.Write(result)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to persist report")
		} else {
			result.ReportPath = path
			if event, err := events.NewReportWrittenEvent(runID, "Report written to "+path, events.ReportWrittenData{Path: path}); err == nil {
				w.deps.Progress.Emit(event)
			}
		}
	}

	if w.deps.Notifier != nil {
		// The run deadline does not apply to notifications
		w.deps.Notifier.Dispatch(context.WithoutCancel(ctx), result, profile)
	}

	event, err := events.NewRunCompletedEvent(runID,
		fmt.Sprintf("%s run finished in %dms", result.Mode, result.ExecutionTimeMs),
		events.RunCompletedData{
			Success:             result.Success,
			DuplicatesProcessed: result.DuplicatesProcessed,
			ExecutionTimeMs:     result.ExecutionTimeMs,
			Error:               result.Error,
		})
	if err == nil {
		w.deps.Progress.Emit(event)
	}

	logger.Info().
		Bool("success", result.Success).
		Int("duplicates_processed", result.DuplicatesProcessed).
		Int64("execution_time_ms", result.ExecutionTimeMs).
		Msg("run finished")
}

// processed counts candidates in check mode and, for sweeps, duplicates
// the executor handled (closed, flagged, or recorded in dry-run).
func processed(rep *types.Report) int {
	if rep.Mode == types.ModeCheck {
		return len(rep.Candidates)
	}
	n := 0
	for _, a := range rep.Actions {
		switch a.Action {
		case types.ActionClosed, types.ActionFlagged, types.ActionNone:
			n++
		}
	}
	return n
}
