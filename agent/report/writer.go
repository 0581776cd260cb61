package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kittipatv/should-i-move/agent/contract"
)

// Writer persists rendered reports under one directory.
type Writer struct {
	dir string
}

// NewWriter builds a writer rooted at dir, creating it on first save.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "reports"
	}
	return &Writer{dir: dir}
}

// Save renders and writes the report, returning the file path. createdAt
// must be the session creation time so the filename carries the same
// timestamp the analysis ID encodes; an analysis finishing minutes later
// still resolves through FindByAnalysisID.
func (w *Writer) Save(profile contract.Profile, protocol contract.Protocol, decision contract.Decision, createdAt time.Time) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(w.dir, Filename(profile.CurrentCity, profile.DesiredCity, createdAt))
	body := Render(profile, protocol, decision, createdAt)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Info().Str("path", path).Msg("report saved")
	return path, nil
}

// FindByAnalysisID locates the report written for an analysis session. The
// session ID carries the creation timestamp (analysis_YYYYMMDD_HHMMSS_micro)
// and report filenames carry the same second-resolution timestamp.
func (w *Writer) FindByAnalysisID(analysisID string) (string, error) {
	parts := strings.Split(strings.TrimPrefix(analysisID, "analysis_"), "_")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: malformed analysis id %q", contract.ErrValidation, analysisID)
	}
	timestamp := parts[0] + "_" + parts[1]

	matches, err := filepath.Glob(filepath.Join(w.dir, "*_"+timestamp+"_analysis.md"))
	if err != nil {
		return "", fmt.Errorf("search reports: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no report for %q", contract.ErrSessionNotFound, analysisID)
	}
	sort.Strings(matches)
	return matches[0], nil
}
