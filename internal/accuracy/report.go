package accuracy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Report file names under the data directory.
const (
	RunsDir       = "runs"
	LatestFile    = "baseline_results.json"
	HistoryFile   = "accuracy_history.json"
	runIDLayout   = "20060102_150405"
	defaultPrefix = "baseline"
)

// NewRunID derives a run ID from the run start time.
func NewRunID(t time.Time) string {
	return t.Format(runIDLayout)
}

// Label builds the run label baseline[_v{version}][_multipass]. A non-empty
// override wins.
func Label(promptVersion string, multiPass bool, override string) string {
	if override != "" {
		return override
	}
	var sb strings.Builder
	sb.WriteString(defaultPrefix)
	if promptVersion != "" {
		sb.WriteString("_v")
		sb.WriteString(promptVersion)
	}
	if multiPass {
		sb.WriteString("_multipass")
	}
	return sb.String()
}

// Reports reads and writes run reports under a data directory.
type Reports struct {
	dir string
}

// NewReports creates a Reports rooted at dir.
func NewReports(dir string) *Reports {
	return &Reports{dir: dir}
}

// RunPath returns where the report for summary is written.
func (r *Reports) RunPath(s model.RunSummary) string {
	return filepath.Join(r.dir, RunsDir, fmt.Sprintf("%s_%s.json", s.RunID, s.Label))
}

// LatestPath returns the path of the latest details file.
func (r *Reports) LatestPath() string {
	return filepath.Join(r.dir, LatestFile)
}

// Write saves the run file, replaces the latest details file and appends
// the summary to the history. It returns the run file path.
func (r *Reports) Write(report model.RunReport) (string, error) {
	if err := os.MkdirAll(filepath.Join(r.dir, RunsDir), 0o755); err != nil {
		return "", eris.Wrap(err, "accuracy: create runs dir")
	}

	path := r.RunPath(report.Summary)
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	if err := writeJSON(r.LatestPath(), report.Details); err != nil {
		return "", err
	}

	history, err := r.History()
	if err != nil {
		return "", err
	}
	history = append(history, report.Summary)
	if err := writeJSON(filepath.Join(r.dir, HistoryFile), history); err != nil {
		return "", err
	}

	zap.L().Info("accuracy: run report written",
		zap.String("path", path),
		zap.String("run_id", report.Summary.RunID),
		zap.Float64("average_accuracy", report.Summary.AverageAccuracy),
	)
	return path, nil
}

// History returns all recorded run summaries, oldest first. A missing
// history file is an empty history.
func (r *Reports) History() ([]model.RunSummary, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, HistoryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "accuracy: read history")
	}
	var history []model.RunSummary
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, eris.Wrap(err, "accuracy: parse history")
	}
	return history, nil
}

// Runs lists the run files in the runs directory, newest first.
func (r *Reports) Runs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, RunsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "accuracy: list runs")
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(r.dir, RunsDir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// LoadRun reads a run file.
func LoadRun(path string) (*model.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "accuracy: read run %s", path)
	}
	var report model.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, eris.Wrapf(err, "accuracy: parse run %s", path)
	}
	return &report, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "accuracy: encode %s", filepath.Base(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "accuracy: write %s", filepath.Base(path))
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "accuracy: replace %s", filepath.Base(path))
	}
	return nil
}
