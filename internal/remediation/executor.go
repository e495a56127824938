// Package remediation applies duplicate actions (comment, label, close) to
// the tracker. Each duplicate is handled independently: a failed call is
// recorded on that duplicate's ActionRecord and the batch continues.
package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/steveyegge/dupsweep/internal/events"
	"github.com/steveyegge/dupsweep/internal/tracker"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Intended actions
const (
	IntentClose = "close"
	IntentFlag  = "flag"
)

// Step names recorded on ActionRecord.Steps
const (
	StepComment      = "comment"
	StepLabel        = "label"
	StepLabelSkipped = "label-skipped"
	StepClose        = "close"
)

// Outcome is the result of applying remediation to a set of groups
type Outcome struct {
	Actions []types.ActionRecord
	Errors  []string
}

// Processed counts duplicates that were closed or flagged
func (o Outcome) Processed() int {
	n := 0
	for _, a := range o.Actions {
		if a.Action == types.ActionClosed || a.Action == types.ActionFlagged {
			n++
		}
	}
	return n
}

// Executor issues remediation calls sequentially, in group order and
// duplicate order within a group.
type Executor struct {
	client   tracker.Client
	cfg      Config
	logger   zerolog.Logger
	runID    string
	progress events.ProgressFunc
}

// NewExecutor creates an executor. client may be nil only in dry-run.
func NewExecutor(client tracker.Client, cfg Config, logger zerolog.Logger) *Executor {
	return &Executor{client: client, cfg: cfg, logger: logger}
}

// WithProgress makes the executor emit one event per duplicate
func (e *Executor) WithProgress(runID string, fn events.ProgressFunc) *Executor {
	e.runID = runID
	e.progress = fn
	return e
}

// Apply handles every duplicate of every group. It never returns early: a
// per-issue failure becomes an ActionError record plus an entry in Errors.
func (e *Executor) Apply(ctx context.Context, groups []types.DuplicateGroup) Outcome {
	var out Outcome
	handled := 0

	for _, group := range groups {
		for _, dup := range group.Duplicates {
			record := types.ActionRecord{
				Issue:      dup.Number,
				Primary:    group.Primary,
				Intended:   e.intent(),
				DryRun:     e.cfg.DryRun,
				Similarity: dup.Similarity.Overall,
			}

			switch {
			case e.cfg.BatchSize > 0 && handled >= e.cfg.BatchSize:
				record.Action = types.ActionDeferred
			case e.cfg.DryRun:
				record.Action = types.ActionNone
				record.Steps = e.plannedSteps()
				handled++
			default:
				handled++
				if err := e.apply(ctx, &record); err != nil {
					record.Action = types.ActionError
					record.Error = err.Error()
					out.Errors = append(out.Errors, fmt.Sprintf("issue #%d: %v", dup.Number, err))
					e.logger.Error().
						Err(err).
						Int("issue", dup.Number).
						Int("primary", group.Primary).
						Msg("remediation failed")
				}
			}

			out.Actions = append(out.Actions, record)
			e.emit(record)
		}
	}

	return out
}

func (e *Executor) intent() string {
	if e.cfg.RequireManualReview {
		return IntentFlag
	}
	return IntentClose
}

func (e *Executor) plannedSteps() []string {
	steps := []string{StepComment, StepLabel}
	if !e.cfg.RequireManualReview {
		steps = append(steps, StepClose)
	}
	return steps
}

// apply runs comment, label and (unless under review) close for one
// duplicate. A missing label is not an error.
func (e *Executor) apply(ctx context.Context, record *types.ActionRecord) error {
	if e.client == nil {
		return errors.New("no tracker client configured")
	}

	if err := e.client.CreateComment(ctx, record.Issue, e.message(record)); err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	record.Steps = append(record.Steps, StepComment)

	if err := e.client.AddLabels(ctx, record.Issue, []string{e.cfg.DuplicateLabel}); err != nil {
		if !errors.Is(err, tracker.ErrLabelNotFound) {
			return fmt.Errorf("label: %w", err)
		}
		e.logger.Warn().
			Int("issue", record.Issue).
			Str("label", e.cfg.DuplicateLabel).
			Msg("duplicate label does not exist, continuing without it")
		record.Steps = append(record.Steps, StepLabelSkipped)
	} else {
		record.Steps = append(record.Steps, StepLabel)
	}

	if e.cfg.RequireManualReview {
		record.Action = types.ActionFlagged
		return nil
	}

	if err := e.client.SetState(ctx, record.Issue, types.StateClosed); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	record.Steps = append(record.Steps, StepClose)
	record.Action = types.ActionClosed

	e.logger.Info().
		Int("issue", record.Issue).
		Int("primary", record.Primary).
		Float64("similarity", record.Similarity).
		Msg("closed duplicate")
	return nil
}

func (e *Executor) message(record *types.ActionRecord) string {
	if !e.cfg.RequireManualReview {
		return Render(e.cfg.CloseMessageTemplate, record.Primary, record.Issue, record.Similarity)
	}
	template := e.cfg.ReviewMessageTemplate
	if template == "" {
		template = DefaultReviewMessageTemplate
	}
	msg := Render(template, record.Primary, record.Issue, record.Similarity)
	if m := mentions(e.cfg.Reviewers); m != "" {
		msg += "\n\ncc " + m
	}
	return msg
}

func (e *Executor) emit(record types.ActionRecord) {
	if e.progress == nil {
		return
	}
	event, err := events.NewRemediationActionEvent(e.runID,
		fmt.Sprintf("#%d %s (duplicate of #%d)", record.Issue, record.Action, record.Primary),
		events.RemediationActionData{
			Issue:      record.Issue,
			Primary:    record.Primary,
			Action:     string(record.Action),
			DryRun:     record.DryRun,
			Similarity: record.Similarity,
			Error:      record.Error,
		})
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to build remediation event")
		return
	}
	e.progress.Emit(event)
}
