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

var extractionsCmd = &cobra.Command{
	Use:   "extractions",
	Short: "Inspect recorded extractions",
}

var extractionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List extractions, newest first",
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

		status, _ := cmd.Flags().GetString("status")
		document, _ := cmd.Flags().GetString("document")
		limit, _ := cmd.Flags().GetInt("limit")

		recs, err := st.ListExtractions(ctx, store.ExtractionFilter{
			Status:       model.ExtractionStatus(status),
			DocumentName: document,
			Limit:        limit,
		})
		if err != nil {
			return eris.Wrap(err, "extractions list")
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No extractions found.")
			return nil
		}

		formatExtractionsList(os.Stdout, recs)
		return nil
	},
}

var extractionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an extraction as JSON",
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

		rec, err := st.GetExtraction(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "extractions show")
		}
		return writeJSON("", rec)
	},
}

func init() {
	extractionsListCmd.Flags().String("status", "", "filter by status (processing, completed, failed)")
	extractionsListCmd.Flags().String("document", "", "filter by document name")
	extractionsListCmd.Flags().Int("limit", 50, "max number of extractions to display")

	extractionsCmd.AddCommand(extractionsListCmd)
	extractionsCmd.AddCommand(extractionsShowCmd)
	rootCmd.AddCommand(extractionsCmd)
}

// formatExtractionsList writes a tabular list of extractions to w.
func formatExtractionsList(out io.Writer, recs []model.ExtractionRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOCUMENT\tSTATUS\tCOST\tCREATED\tERROR")
	for _, r := range recs {
		var cost float64
		if r.Result != nil {
			cost = r.Result.TotalCost
		}
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t%s\t%s\n",
			truncateID(r.ID),
			r.DocumentName,
			r.Status,
			cost,
			r.CreatedAt.Format("2006-01-02 15:04"),
			errMsg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
