package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/accuracy"
)

var exportCmd = &cobra.Command{
	Use:   "export [run-file]",
	Short: "Export a benchmark run as an xlsx workbook",
	Long: `Writes a run file as a workbook with Summary, Fields and Details sheets.
Without an argument the newest run in the data directory is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			runs, err := accuracy.NewReports(cfg.Benchmark.DataDir).Runs()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				return eris.New("export: no runs recorded")
			}
			path = runs[0]
		}

		report, err := accuracy.LoadRun(path)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(path, ".json") + ".xlsx"
		}
		if err := accuracy.ExportXLSX(*report, out); err != nil {
			return err
		}

		zap.L().Info("run exported", zap.String("run_id", report.Summary.RunID), zap.String("out", out))
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "", "workbook path (default: run file with .xlsx)")
	rootCmd.AddCommand(exportCmd)
}
