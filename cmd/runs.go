package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect benchmark run history",
	Long:  "Commands for listing recorded benchmark runs and tracking field accuracy across them.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List benchmark runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListAccuracyRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetAccuracyRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		formatSummary(os.Stdout, *run)
		return nil
	},
}

// -- runs field --

var runsFieldCmd = &cobra.Command{
	Use:   "field <gold-field>",
	Short: "Show one field's accuracy across runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		points, err := st.FieldHistory(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "runs field")
		}
		if len(points) == 0 {
			fmt.Fprintln(os.Stderr, "No runs scored this field.")
			return nil
		}

		formatFieldHistory(os.Stdout, points)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")
	runsFieldCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsFieldCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of run summaries to w.
func formatRunsList(out io.Writer, runs []model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tLABEL\tLEASES\tERRORED\tACCURACY\tCOST\tWHEN")
	_, _ = fmt.Fprintln(w, "---\t-----\t------\t-------\t--------\t----\t----")

	for _, r := range runs {
		label := r.Label
		if len(label) > 30 {
			label = label[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f%%\t$%.4f\t%s\n",
			r.RunID,
			label,
			r.LeasesTested,
			r.LeasesErrored,
			r.AverageAccuracy,
			r.TotalCost,
			r.Timestamp.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatFieldHistory writes a field's accuracy per run to w.
func formatFieldHistory(out io.Writer, points []store.FieldPoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tLABEL\tACCURACY\tWHEN")
	for _, p := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\n",
			p.RunID, p.Label, p.Accuracy, p.Timestamp.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
