package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/types"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 20, 30, 123000000, time.UTC)
	tests := []struct {
		reportType string
		repo       string
		expected   string
	}{
		{TypeAnalysis, "acme-app", "duplicate-analysis-acme-app-2024-03-05T10-20-30-123Z.json"},
		{TypeCheck, "acme/app", "duplicate-check-acme-app-2024-03-05T10-20-30-123Z.json"},
		{TypeScheduled, "", "scheduled-dedup-unknown-2024-03-05T10-20-30-123Z.json"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FileName(tt.reportType, tt.repo, ts))
		})
	}
}

func TestTypeForMode(t *testing.T) {
	assert.Equal(t, TypeAnalysis, TypeForMode(types.ModeAnalysis))
	assert.Equal(t, TypeCheck, TypeForMode(types.ModeCheck))
	assert.Equal(t, TypeScheduled, TypeForMode(types.ModeScheduled))
	assert.Equal(t, TypeWebhook, TypeForMode(types.ModeWebhook))
}

func TestSink_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	sink := NewSink(dir, config.DefaultReportRetentionConfig(), zerolog.Nop())

	result := &types.WorkflowResult{
		Mode:       types.ModeAnalysis,
		Repository: "acme/app",
		Timestamp:  time.Date(2024, 3, 5, 10, 20, 30, 0, time.UTC),
		Success:    true,
		Report:     &types.Report{RunID: "run-1", Mode: types.ModeAnalysis, Groups: []types.DuplicateGroup{}},
	}

	path, err := sink.Write(result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "duplicate-analysis-acme-app-2024-03-05T10-20-30-000Z.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded types.WorkflowResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Success)
	require.NotNil(t, decoded.Report)
	assert.Equal(t, "run-1", decoded.Report.RunID)
}

func TestSink_WriteErrors(t *testing.T) {
	_, err := NewSink(t.TempDir(), config.DefaultReportRetentionConfig(), zerolog.Nop()).Write(nil)
	assert.Error(t, err)

	// A file where the directory should be
	blocker := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = NewSink(blocker, config.DefaultReportRetentionConfig(), zerolog.Nop()).Write(&types.WorkflowResult{Mode: types.ModeCheck})
	assert.Error(t, err)
}

func writeAged(t *testing.T, dir, name string, age time.Duration, now time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	mod := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSink_Prune(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	const (
		old = "duplicate-analysis-acme-app-2026-01-01T00-00-00-000Z.json"
		a   = "scheduled-dedup-acme-app-2026-03-01T00-00-00-000Z.json"
		b   = "duplicate-check-acme-app-2026-03-06T00-00-00-000Z.json"
		c   = "webhook-dedup-acme-app-2026-03-10T00-00-00-000Z.json"
	)
	// never touched: not written by the sink
	foreign := []string{"notes.txt", "issues.json", "duplicate-analysis.json", "my-duplicate-check-x.json"}

	tests := []struct {
		name      string
		retention config.ReportRetentionConfig
		removed   int
		remaining []string
	}{
		{
			name:      "age only",
			retention: config.ReportRetentionConfig{RetentionDays: 30, PruneEnabled: true},
			removed:   1,
			remaining: []string{a, b, c},
		},
		{
			name:      "count only keeps newest",
			retention: config.ReportRetentionConfig{MaxReports: 2, PruneEnabled: true},
			removed:   2,
			remaining: []string{b, c},
		},
		{
			name:      "age then count",
			retention: config.ReportRetentionConfig{RetentionDays: 30, MaxReports: 1, PruneEnabled: true},
			removed:   3,
			remaining: []string{c},
		},
		{
			name:      "unlimited",
			retention: config.ReportRetentionConfig{PruneEnabled: true},
			removed:   0,
			remaining: []string{a, b, c, old},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeAged(t, dir, old, 45*day, now)
			writeAged(t, dir, a, 10*day, now)
			writeAged(t, dir, b, 5*day, now)
			writeAged(t, dir, c, time.Hour, now)
			for _, name := range foreign {
				writeAged(t, dir, name, 90*day, now)
			}

			sink := NewSink(dir, tt.retention, zerolog.Nop())
			removed, err := sink.Prune()
			require.NoError(t, err)
			assert.Equal(t, tt.removed, removed)
			assert.ElementsMatch(t, append(tt.remaining, foreign...), listNames(t, dir))
		})
	}
}

func TestIsReportFile(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{FileName(TypeAnalysis, "acme/app", time.Now()), true},
		{FileName(TypeCheck, "acme/app", time.Now()), true},
		{FileName(TypeScheduled, "", time.Now()), true},
		{FileName(TypeWebhook, "acme/app", time.Now()), true},
		{"issues.json", false},
		{"duplicate-analysis.json", false},
		{"duplicate-analysis-acme-app.txt", false},
		{"profiles.yaml", false},
	}
	for _, tt := range tests {
		if got := IsReportFile(tt.name); got != tt.expected {
			t.Errorf("IsReportFile(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestSink_WritePrunes(t *testing.T) {
	dir := t.TempDir()
	sixtyDays := 60 * 24 * time.Hour
	writeAged(t, dir, "duplicate-check-acme-app-2026-01-01T00-00-00-000Z.json", sixtyDays, time.Now())
	writeAged(t, dir, "issues.json", sixtyDays, time.Now())

	sink := NewSink(dir, config.DefaultReportRetentionConfig(), zerolog.Nop())
	path, err := sink.Write(&types.WorkflowResult{Mode: types.ModeCheck, Repository: "acme/app", Timestamp: time.Now()})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{filepath.Base(path), "issues.json"}, listNames(t, dir))
}
