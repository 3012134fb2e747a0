package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lease-abstract/internal/accuracy"
	"github.com/sells-group/lease-abstract/internal/gold"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/registry"
)

var scoreCmd = &cobra.Command{
	Use:   "score [results-file]",
	Short: "Re-score saved extractions against the gold standard",
	Long: `Re-runs the accuracy comparison over extractions saved by an earlier
benchmark, without calling the provider. The input is either a run file
(runs/<run_id>_<label>.json) or a details file such as baseline_results.json;
it defaults to the latest details file in the data directory.

Examples:
  score
  score data/runs/20250301_101500_baseline_v3.json --write`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScoreCmd,
}

func init() {
	f := scoreCmd.Flags()
	f.Bool("write", false, "record the re-scored run as a new run report")
	f.String("label", "", "label for the re-scored run (default: <label>_rescored)")

	rootCmd.AddCommand(scoreCmd)
}

func runScoreCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	reports := accuracy.NewReports(cfg.Benchmark.DataDir)
	path := reports.LatestPath()
	if len(args) > 0 {
		path = args[0]
	}
	prev, details, err := loadResults(path)
	if err != nil {
		return err
	}
	records, err := gold.Load(cfg.Benchmark.GoldPath)
	if err != nil {
		return err
	}

	scorer := accuracy.NewScorer(registry.GoldFieldMap)
	rescored, err := scorer.Rescore(ctx, records, details, cfg.Benchmark.ScoreWorkers)
	if err != nil {
		return err
	}

	now := time.Now()
	info := accuracy.RunInfo{RunID: accuracy.NewRunID(now), Label: "rescored", Timestamp: now}
	if prev != nil {
		info.Label = prev.Label + "_rescored"
		info.PromptVersion = prev.PromptVersion
		info.FewShotCount = prev.FewShotCount
		info.MultiPass = prev.MultiPass
	}
	if label, _ := cmd.Flags().GetString("label"); label != "" {
		info.Label = label
	}
	report := model.RunReport{Summary: accuracy.Summarize(info, rescored), Details: rescored}

	if write, _ := cmd.Flags().GetBool("write"); write {
		if _, err := reports.Write(report); err != nil {
			return err
		}
	}

	formatSummary(os.Stdout, report.Summary)
	return nil
}

// loadResults reads a run file, or a bare details list. The summary is nil
// for a details list.
func loadResults(path string) (*model.RunSummary, []model.LeaseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "read results %s", path)
	}

	var details []model.LeaseResult
	if err := json.Unmarshal(data, &details); err == nil {
		return nil, details, nil
	}

	var report model.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, nil, eris.Wrapf(err, "parse results %s", path)
	}
	return &report.Summary, report.Details, nil
}
