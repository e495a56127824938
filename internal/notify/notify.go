// Package notify fans a finished run out to the configured notification
// channels. Delivery failures are logged and never change the run outcome.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/tracker"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Message is what every channel delivers
type Message struct {
	Subject string
	Text    string
	Result  *types.WorkflowResult
}

// Channel delivers a message to one destination
type Channel interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// BuildMessage renders the summary text for result
func BuildMessage(result *types.WorkflowResult) Message {
	subject := fmt.Sprintf("dupsweep %s run on %s", result.Mode, result.Repository)
	if !result.Success {
		return Message{
			Subject: subject + " failed",
			Text:    fmt.Sprintf("%s failed: %s", subject, result.Error),
			Result:  result,
		}
	}

	var b strings.Builder
	b.WriteString(subject)
	if r := result.Report; r != nil {
		s := r.Summary
		fmt.Fprintf(&b, ": %d groups, %d duplicates, %d closed, %d flagged, %d deferred, %d errors",
			s.Groups, s.Duplicates, s.Closed, s.Flagged, s.Deferred, s.Errors)
		fmt.Fprintf(&b, " (profile %s", r.Profile)
		if r.DryRun {
			b.WriteString(", dry-run")
		}
		fmt.Fprintf(&b, ", run %s)", r.RunID)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(&b, "\nReport: %s", result.ReportPath)
	}
	return Message{Subject: subject, Text: b.String(), Result: result}
}

// Dispatcher sends run summaries to every channel
type Dispatcher struct {
	channels []Channel
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher. Nil channels are dropped.
func NewDispatcher(logger zerolog.Logger, channels ...Channel) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, c := range channels {
		if c != nil {
			d.channels = append(d.channels, c)
		}
	}
	return d
}

// Channels returns the configured channel names
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, c := range d.channels {
		names = append(names, c.Name())
	}
	return names
}

// ShouldNotify applies the profile gate: only runs that closed at least one
// issue under a profile with notifyOnClose are sent.
func ShouldNotify(result *types.WorkflowResult, profile config.Profile) bool {
	if result == nil || result.Report == nil || !profile.NotifyOnClose {
		return false
	}
	return result.Report.Summary.Closed > 0
}

// Dispatch delivers result to every channel when the profile allows it and
// returns how many channels accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, result *types.WorkflowResult, profile config.Profile) int {
	if d == nil || len(d.channels) == 0 {
		return 0
	}
	if !ShouldNotify(result, profile) {
		d.logger.Debug().Msg("notification skipped by profile")
		return 0
	}

	msg := BuildMessage(result)
	delivered := 0
	for _, c := range d.channels {
		if err := c.Notify(ctx, msg); err != nil {
			d.logger.Warn().Err(err).Str("channel", c.Name()).Msg("notification failed")
			continue
		}
		delivered++
	}
	return delivered
}

// FromConfig builds the channels enabled in cfg, in the order tracker,
// chat, email, redis. The returned cleanup releases the Redis client.
func FromConfig(cfg *config.Config, client tracker.Client) ([]Channel, func() error, error) {
	cleanup := func() error { return nil }
	var channels []Channel

	if cfg.SummaryIssue > 0 && client != nil {
		channels = append(channels, NewTrackerChannel(client, cfg.SummaryIssue))
	}
	if cfg.ChatWebhookURL != "" {
		channels = append(channels, NewChatChannel(cfg.ChatWebhookURL, nil))
	}
	if cfg.SMTPHost != "" {
		channels = append(channels, NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTo))
	}
	if cfg.RedisURL != "" {
		rdb, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		channels = append(channels, NewRedisStreamChannel(rdb, cfg.RedisStream))
		cleanup = rdb.Close
	}
	return channels, cleanup, nil
}
