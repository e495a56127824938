package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/steveyegge/dupsweep/internal/events"
	"github.com/steveyegge/dupsweep/internal/types"
)

// printResult writes a human-readable summary of a workflow result
func printResult(out io.Writer, result *types.WorkflowResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(out, "\n%s\n", cyan(fmt.Sprintf("=== dupsweep %s: %s ===", result.Mode, result.Repository)))

	if !result.Success {
		fmt.Fprintf(out, "%s %s\n", red("✗ Run failed:"), result.Error)
		fmt.Fprintf(out, "%s\n", gray(fmt.Sprintf("Took %s", formatDurationMs(int(result.ExecutionTimeMs)))))
		return
	}

	rep := result.Report
	if rep == nil {
		return
	}
	mode := "live"
	if rep.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(out, "Profile: %s (%s) | threshold %s | %s | %s\n",
		rep.Profile, rep.ProfileSource, percent(rep.Threshold), rep.Algorithm, mode)
	fmt.Fprintf(out, "%s\n\n", gray(fmt.Sprintf("Scanned %d issues, %d comparisons, took %s",
		rep.IssuesScanned, rep.Comparisons, formatDurationMs(int(result.ExecutionTimeMs)))))

	if rep.Target != nil {
		fmt.Fprintf(out, "%s %s %s\n", yellow("Candidates for"), green(types.IssueRef(rep.Target.Number)), rep.Target.Title)
		if len(rep.Candidates) == 0 {
			fmt.Fprintf(out, "  %s\n", gray("No similar open issues"))
		}
		for _, c := range rep.Candidates {
			fmt.Fprintf(out, "  %s %s %s\n", green(types.IssueRef(c.Number)), truncateString(c.Title, 50), yellow(percent(c.Similarity.Overall)))
		}
	} else {
		printGroups(out, rep)
	}

	for _, e := range rep.Errors {
		fmt.Fprintf(out, "%s %s\n", red("✗"), e)
	}

	s := rep.Summary
	fmt.Fprintf(out, "\n%s %d groups, %d duplicates, %d closed, %d flagged, %d deferred, %d errors\n",
		yellow("Summary:"), s.Groups, s.Duplicates, s.Closed, s.Flagged, s.Deferred, s.Errors)
	if result.ReportPath != "" {
		fmt.Fprintf(out, "%s %s\n", gray("Report:"), result.ReportPath)
	}
}

func printGroups(out io.Writer, rep *types.Report) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if len(rep.Groups) == 0 {
		fmt.Fprintf(out, "  %s\n", gray("No duplicate groups found"))
		return
	}

	actions := make(map[int]types.ActionRecord, len(rep.Actions))
	for _, a := range rep.Actions {
		actions[a.Issue] = a
	}

	for _, g := range rep.Groups {
		fmt.Fprintf(out, "%s %s\n", green(types.IssueRef(g.Primary)), g.PrimaryTitle)
		for _, d := range g.Duplicates {
			line := fmt.Sprintf("  └ %s %s %s", green(types.IssueRef(d.Number)), truncateString(d.Title, 50), yellow(percent(d.Similarity.Overall)))
			if a, ok := actions[d.Number]; ok {
				line += " " + actionColor(a.Action).Sprintf("[%s]", actionLabel(a))
			}
			fmt.Fprintln(out, line)
		}
	}
}

func actionLabel(a types.ActionRecord) string {
	if a.Action == types.ActionNone && a.Intended != "" {
		return "would " + a.Intended
	}
	return string(a.Action)
}

func actionColor(status types.ActionStatus) *color.Color {
	switch status {
	case types.ActionClosed:
		return color.New(color.FgGreen)
	case types.ActionFlagged, types.ActionDeferred:
		return color.New(color.FgYellow)
	case types.ActionError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// eventPrinter writes progress events in a two-line format
type eventPrinter struct {
	out io.Writer
}

func newEventPrinter(out io.Writer) *eventPrinter {
	return &eventPrinter{out: out}
}

// Print formats one event. It matches events.ProgressFunc.
func (p *eventPrinter) Print(event *events.Event) {
	if event == nil {
		return
	}
	severityColor := getSeverityColor(event.Severity)
	timestamp := event.Timestamp.Format("15:04:05")
	eventType := color.New(color.FgMagenta).Sprint(event.Type)

	fmt.Fprintf(p.out, "%s [%s] %s: %s\n",
		getEventEmoji(event),
		timestamp,
		eventType,
		severityColor.Sprint(truncateString(event.Message, 70)),
	)

	if metadata := extractEventMetadata(event); metadata != "" {
		fmt.Fprintf(p.out, "  %s\n", color.New(color.FgHiBlack).Sprint(metadata))
	}
}

func getEventEmoji(event *events.Event) string {
	switch event.Type {
	case events.EventTypeRunStarted:
		return "🚀"
	case events.EventTypeFetchCompleted:
		return "📥"
	case events.EventTypeClusterCompleted:
		return "🔀"
	case events.EventTypeCandidatesFound:
		return "🎯"
	case events.EventTypeReportWritten:
		return "📝"
	}

	switch event.Severity {
	case events.SeverityWarning:
		return "⚠️"
	case events.SeverityError:
		return "❌"
	}
	if event.Type == events.EventTypeRunCompleted {
		return "✅"
	}
	return "ℹ️"
}

func getSeverityColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityInfo:
		return color.New(color.FgCyan)
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgWhite)
	}
}

// extractEventMetadata picks a few key fields per event type
func extractEventMetadata(event *events.Event) string {
	var fields []string

	switch event.Type {
	case events.EventTypeRunStarted:
		dryRun := "live"
		if getBoolField(event.Data, "dry_run", false) {
			dryRun = "dry-run"
		}
		fields = []string{getStringField(event.Data, "repository", ""), getStringField(event.Data, "profile", ""), dryRun}

	case events.EventTypeProfileResolved:
		fields = []string{getStringField(event.Data, "source", ""), truncateString(getStringField(event.Data, "warning", ""), 50)}

	case events.EventTypeFetchCompleted:
		fields = []string{
			fmt.Sprintf("%d issues", getIntField(event.Data, "issue_count", 0)),
			formatDurationMs(getIntField(event.Data, "duration_ms", 0)),
		}

	case events.EventTypeClusterCompleted:
		fields = []string{
			fmt.Sprintf("%d groups", getIntField(event.Data, "group_count", 0)),
			fmt.Sprintf("%d dupes", getIntField(event.Data, "duplicate_count", 0)),
			fmt.Sprintf("%d comps", getIntField(event.Data, "comparisons", 0)),
			formatDurationMs(getIntField(event.Data, "processing_time_ms", 0)),
		}

	case events.EventTypeRemediationAction:
		fields = []string{
			fmt.Sprintf("#%d → #%d", getIntField(event.Data, "issue", 0), getIntField(event.Data, "primary", 0)),
			getStringField(event.Data, "action", ""),
			percent(getFloatField(event.Data, "similarity", 0)),
			truncateString(getStringField(event.Data, "error", ""), 30),
		}

	case events.EventTypeRunCompleted:
		fields = []string{
			fmt.Sprintf("%d processed", getIntField(event.Data, "duplicates_processed", 0)),
			formatDurationMs(getIntField(event.Data, "execution_time_ms", 0)),
			truncateString(getStringField(event.Data, "error", ""), 40),
		}

	default:
		if path := getStringField(event.Data, "path", ""); path != "" {
			fields = append(fields, truncateString(path, 60))
		}
	}

	return truncateString(joinFields(fields), 70)
}

func getStringField(data map[string]interface{}, key, defaultValue string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return defaultValue
}

func getIntField(data map[string]interface{}, key string, defaultValue int) int {
	switch val := data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	}
	return defaultValue
}

func getFloatField(data map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := data[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

func getBoolField(data map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := data[key].(bool); ok {
		return val
	}
	return defaultValue
}

// formatDurationMs formats milliseconds into a human-readable duration
func formatDurationMs(ms int) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%.1fm", float64(ms)/60000)
}

// joinFields joins the non-empty fields with " | "
func joinFields(fields []string) string {
	nonEmpty := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			nonEmpty = append(nonEmpty, f)
		}
	}
	return strings.Join(nonEmpty, " | ")
}

// truncateString shortens s to maxLen runes, ending with "..."
func truncateString(s string, maxLen int) string {
	if maxLen <= 3 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
