// Package report persists WorkflowResults as JSON files and prunes old ones.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyegge/dupsweep/internal/config"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Report type prefixes, one per mode
const (
	TypeAnalysis  = "duplicate-analysis"
	TypeCheck     = "duplicate-check"
	TypeScheduled = "scheduled-dedup"
	TypeWebhook   = "webhook-dedup"
)

var reportTypes = []string{TypeAnalysis, TypeCheck, TypeScheduled, TypeWebhook}

// IsReportFile reports whether name looks like a file FileName produced
func IsReportFile(name string) bool {
	if filepath.Ext(name) != ".json" {
		return false
	}
	for _, t := range reportTypes {
		if strings.HasPrefix(name, t+"-") {
			return true
		}
	}
	return false
}

// TypeForMode returns the filename prefix for mode
func TypeForMode(mode types.Mode) string {
	switch mode {
	case types.ModeCheck:
		return TypeCheck
	case types.ModeScheduled:
		return TypeScheduled
	case types.ModeWebhook:
		return TypeWebhook
	default:
		return TypeAnalysis
	}
}

// FileName builds "{type}-{repo}-{timestamp}.json". The timestamp is
// RFC 3339 in UTC with colons and dots replaced so it is safe on every
// filesystem.
func FileName(reportType, repoSlug string, ts time.Time) string {
	stamp := ts.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%s-%s-%s.json", reportType, sanitize(repoSlug), stamp)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

// Sink writes reports under a directory
type Sink struct {
	dir       string
	retention config.ReportRetentionConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSink creates a sink writing into dir
func NewSink(dir string, retention config.ReportRetentionConfig, logger zerolog.Logger) *Sink {
	return &Sink{
		dir:       dir,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Dir returns the report directory
func (s *Sink) Dir() string {
	return s.dir
}

// Write persists result and returns the file path. Pruning failures are
// logged; only a failed write is returned.
func (s *Sink) Write(result *types.WorkflowResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("nil result")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	ts := result.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	path := filepath.Join(s.dir, FileName(TypeForMode(result.Mode), result.Repository, ts))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	if s.retention.PruneEnabled {
		removed, err := s.Prune()
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", s.dir).Msg("report pruning failed")
		} else if removed > 0 {
			s.logger.Debug().Int("removed", removed).Msg("pruned old reports")
		}
	}

	return path, nil
}

type reportFile struct {
	path    string
	modTime time.Time
}

// Prune removes reports older than RetentionDays, then the oldest reports
// beyond MaxReports. Only files named by FileName are considered; anything
// else in the directory is left alone. It returns the number of files removed.
func (s *Sink) Prune() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading report directory: %w", err)
	}

	var files []reportFile
	for _, entry := range entries {
		if entry.IsDir() || !IsReportFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, reportFile{path: filepath.Join(s.dir, entry.Name()), modTime: info.ModTime()})
	}

	// Oldest first
	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	removed := 0
	var firstErr error
	remove := func(f reportFile) {
		if err := os.Remove(f.path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		removed++
	}

	kept := files[:0]
	if s.retention.RetentionDays > 0 {
		cutoff := s.now().Add(-time.Duration(s.retention.RetentionDays) * 24 * time.Hour)
		for _, f := range files {
			if f.modTime.Before(cutoff) {
				remove(f)
				continue
			}
			kept = append(kept, f)
		}
	} else {
		kept = files
	}

	if s.retention.MaxReports > 0 && len(kept) > s.retention.MaxReports {
		for _, f := range kept[:len(kept)-s.retention.MaxReports] {
			remove(f)
		}
	}

	return removed, firstErr
}
