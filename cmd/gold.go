package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/gold"
)

var goldCmd = &cobra.Command{
	Use:   "gold",
	Short: "Build and inspect the gold-standard dataset",
}

// -- gold import --

var goldImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Build gold records from xlsx lease abstracts",
	Long: `Reads every abstract named in a mapping file and writes the gold-standard
JSON. The mapping is a JSON list of
{lease_file, abstract_file, abstract_sheet, tenant_dba, tenant_legal}.
Abstracts that cannot be read are reported and skipped.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("gold"); err != nil {
			return err
		}

		mappingPath, _ := cmd.Flags().GetString("mapping")
		abstractDir, _ := cmd.Flags().GetString("abstracts")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Benchmark.GoldPath
		}

		mappings, err := gold.LoadMappings(mappingPath)
		if err != nil {
			return err
		}
		records, failed := gold.Import(abstractDir, mappings)
		if len(records) == 0 {
			return eris.Errorf("gold import: no abstracts could be read (%d failed)", len(failed))
		}
		if err := gold.Save(out, records); err != nil {
			return err
		}

		for _, f := range failed {
			fmt.Fprintln(os.Stderr, "skipped:", f.Error())
		}
		zap.L().Info("gold import complete",
			zap.String("out", out),
			zap.Int("records", len(records)),
			zap.Int("skipped", len(failed)),
		)
		return nil
	},
}

// -- gold coverage --

var goldCoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Show how often each gold field has a value",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("gold"); err != nil {
			return err
		}

		records, err := gold.Load(cfg.Benchmark.GoldPath)
		if err != nil {
			return err
		}
		formatCoverage(os.Stdout, len(records), gold.Coverage(records))
		return nil
	},
}

func init() {
	goldImportCmd.Flags().String("mapping", "", "lease to abstract mapping JSON (required)")
	goldImportCmd.Flags().String("abstracts", ".", "directory holding the abstract workbooks")
	goldImportCmd.Flags().String("out", "", "output path (default: benchmark.gold_path)")
	_ = goldImportCmd.MarkFlagRequired("mapping")

	goldCmd.AddCommand(goldImportCmd)
	goldCmd.AddCommand(goldCoverageCmd)
	rootCmd.AddCommand(goldCmd)
}

// formatCoverage writes field coverage as a table.
func formatCoverage(out io.Writer, total int, cov []gold.FieldCoverage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n\n", total)
	_, _ = fmt.Fprintln(w, "FIELD\tCOUNT\tCOVERAGE")
	for _, c := range cov {
		_, _ = fmt.Fprintf(w, "%s\t%d/%d\t%.0f%%\n", c.Field, c.Count, c.Total, c.Percent)
	}
	_ = w.Flush()
}
