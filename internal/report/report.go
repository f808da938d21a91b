// Package report persists run output: one immutable metrics snapshot
// per run plus a raw results file for human consumption.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/loadtest"
	"github.com/FairForge/geniebench/internal/netmon"
	"github.com/FairForge/geniebench/internal/platform"
)

// Snapshot is the durable record of one run. Written once, read-only
// afterward.
type Snapshot struct {
	Platform  string             `json:"platform"`
	Scenario  string             `json:"scenario"`
	Timestamp time.Time          `json:"timestamp"`
	Run       loadtest.RunResult `json:"run"`
	ToolUsage map[string]int64   `json:"tool_usage,omitempty"`
	Network   netmon.Statistics  `json:"network_stats"`
	Resources platform.Snapshot  `json:"resources"`
	Job       platform.JobInfo   `json:"job_info,omitempty"`
}

// Writer writes snapshots and raw results into one output directory.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}, nil
}

// WriteSnapshot persists one metrics snapshot and returns its path.
// The file is created exclusively so an existing snapshot is never
// overwritten.
func (w *Writer) WriteSnapshot(snap Snapshot) (string, error) {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = w.now()
	}
	name := fmt.Sprintf("metrics_%s_%s_%s.json",
		snap.Platform, snap.Scenario, snap.Timestamp.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	if err := writeJSONExclusive(path, snap); err != nil {
		return "", err
	}
	w.logger.Info("wrote metrics snapshot", zap.String("path", path))
	return path, nil
}

// WriteResults persists the raw run result, separate from the snapshot.
func (w *Writer) WriteResults(result loadtest.RunResult, platformName, scenario string) (string, error) {
	name := fmt.Sprintf("results_%s_%s_%s.json",
		platformName, scenario, w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	if err := writeJSONExclusive(path, result); err != nil {
		return "", err
	}
	w.logger.Info("wrote run results", zap.String("path", path))
	return path, nil
}

func writeJSONExclusive(path string, v any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads one snapshot file.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
