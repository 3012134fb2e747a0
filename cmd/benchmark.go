package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/accuracy"
	"github.com/sells-group/lease-abstract/internal/benchmark"
	"github.com/sells-group/lease-abstract/internal/docstore"
	"github.com/sells-group/lease-abstract/internal/gold"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/monitoring"
	"github.com/sells-group/lease-abstract/internal/registry"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure extraction accuracy on the gold-standard leases",
	Long: `Extracts the first N eligible gold-standard leases one at a time, scores
each against its hand-labeled abstract and writes a run report under the data
directory (runs/<run_id>_<label>.json, baseline_results.json and
accuracy_history.json). The run summary is also recorded in the store.
The run is then compared with the previous run of the same label and
regressions are posted to monitoring.webhook_url when configured.

A lease is eligible when its document exists in the configured source and is
smaller than benchmark.max_file_bytes. Extractions are spaced by
benchmark.throttle_secs to stay under provider rate limits.

Examples:
  benchmark --leases 10
  benchmark --multi-pass --label prompt_v4_trial
  benchmark --leases 2 --throttle-secs 0 --xlsx accuracy.xlsx`,
	RunE: runBenchmark,
}

func init() {
	f := benchmarkCmd.Flags()
	f.Int("leases", 0, "number of eligible leases to test (0=use config)")
	f.Bool("multi-pass", false, "use refinement extraction (overrides config)")
	f.Float64("threshold", 0, "refinement confidence threshold (0=use config)")
	f.String("label", "", "run label (default: baseline[_v<prompt>][_multipass])")
	f.Int("throttle-secs", -1, "seconds between leases (-1=use config, 0=no throttle)")
	f.String("xlsx", "", "also export the run as an xlsx workbook")
	f.Bool("no-persist", false, "do not record the run in the store")

	rootCmd.AddCommand(benchmarkCmd)
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("benchmark"); err != nil {
		return err
	}

	bcfg := benchmark.Config{
		NumLeases:    cfg.Benchmark.NumLeases,
		MultiPass:    cfg.Extraction.MultiPass,
		Threshold:    cfg.Extraction.RefinementThreshold,
		MaxFileBytes: cfg.Benchmark.MaxFileBytes,
		Throttle:     cfg.Benchmark.Throttle(),
		Label:        cfg.Benchmark.Label,
		Retry:        cfg.Benchmark.Retry(),
	}
	if n, _ := cmd.Flags().GetInt("leases"); n > 0 {
		bcfg.NumLeases = n
	}
	if mp, _ := cmd.Flags().GetBool("multi-pass"); mp {
		bcfg.MultiPass = true
	}
	if th, _ := cmd.Flags().GetFloat64("threshold"); th > 0 {
		bcfg.Threshold = th
	}
	if label, _ := cmd.Flags().GetString("label"); label != "" {
		bcfg.Label = label
	}
	if secs, _ := cmd.Flags().GetInt("throttle-secs"); secs >= 0 {
		bcfg.Throttle = -1
		if secs > 0 {
			bcfg.Throttle = time.Duration(secs) * time.Second
		}
	}
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	noPersist, _ := cmd.Flags().GetBool("no-persist")

	records, err := gold.Load(cfg.Benchmark.GoldPath)
	if err != nil {
		return err
	}
	docs, err := docstore.New(cfg.Documents)
	if err != nil {
		return err
	}
	ext, builder, err := initExtractor()
	if err != nil {
		return err
	}

	reports := accuracy.NewReports(cfg.Benchmark.DataDir)
	var history monitoring.RunLister = monitoring.FileRuns{Reports: reports}

	opts := []benchmark.Option{benchmark.WithPrompt(builder.Version(), builder.ExampleCount())}
	if !noPersist {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		opts = append(opts, benchmark.WithSaver(st))
		history = st
	}

	runner := benchmark.NewRunner(ext, docs, accuracy.NewScorer(registry.GoldFieldMap),
		reports, bcfg, opts...)

	report, err := runner.Run(ctx, records, func(s benchmark.RunState) {
		if s.Status == benchmark.StatusRunning && s.CurrentLease > len(s.Completed) {
			zap.L().Info("benchmark progress",
				zap.Int("lease", s.CurrentLease),
				zap.Int("of", s.TotalLeases),
				zap.String("tenant", s.CurrentTenant),
				zap.Float64("overall_accuracy", s.OverallAccuracy),
				zap.Duration("estimated_remaining", s.EstimatedRemaining.Round(time.Second)),
			)
		}
	})
	if err != nil {
		return err
	}

	if xlsxPath != "" {
		if err := accuracy.ExportXLSX(*report, xlsxPath); err != nil {
			return err
		}
	}

	checker := monitoring.NewChecker(monitoring.NewCollector(history), monitoring.NewAlerter(cfg.Monitoring))
	alerts := checker.Check(ctx, report.Summary)

	formatSummary(os.Stdout, report.Summary)
	for _, a := range alerts {
		_, _ = fmt.Fprintf(os.Stdout, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
	return nil
}

// formatSummary writes a run summary with per-lease and per-field accuracy.
func formatSummary(out io.Writer, s model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s (%s)\n", s.RunID, s.Label)
	_, _ = fmt.Fprintf(w, "Leases tested:\t%d\n", s.LeasesTested)
	if s.LeasesErrored > 0 {
		_, _ = fmt.Fprintf(w, "Leases errored:\t%d\n", s.LeasesErrored)
	}
	_, _ = fmt.Fprintf(w, "Average accuracy:\t%.1f%%\n", s.AverageAccuracy)
	_, _ = fmt.Fprintf(w, "Total cost:\t$%.4f\n", s.TotalCost)
	_, _ = fmt.Fprintf(w, "Total time:\t%.1fs\n", s.TotalTime)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "TENANT\tACCURACY\tERROR")
	for _, l := range s.PerLease {
		_, _ = fmt.Fprintf(w, "%s\t%.1f%%\t%s\n", l.Tenant, l.Accuracy, l.Error)
	}
	_, _ = fmt.Fprintln(w)

	names := make([]string, 0, len(s.FieldAccuracy))
	for name := range s.FieldAccuracy {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.FieldAccuracy[names[i]], s.FieldAccuracy[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	_, _ = fmt.Fprintln(w, "FIELD\tACCURACY")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%.1f%%\n", name, s.FieldAccuracy[name])
	}
	_ = w.Flush()
}
