package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/citation"
	"github.com/sells-group/lease-abstract/internal/docstore"
	"github.com/sells-group/lease-abstract/internal/extract"
	"github.com/sells-group/lease-abstract/internal/model"
	"github.com/sells-group/lease-abstract/internal/pdftext"
	"github.com/sells-group/lease-abstract/internal/resilience"
	"github.com/sells-group/lease-abstract/internal/store"
	"github.com/sells-group/lease-abstract/pkg/anthropic"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Extract a lease abstract from one document",
	Long: `Extracts every lease field from a document, normalizes and validates the
values, optionally re-extracts low-confidence fields in a focused second pass
and verifies citations against the PDF text. The result is persisted as an
extraction record and printed as JSON.

Examples:
  # Single pass from a local file
  extract leases/acme.pdf

  # Refine fields below 0.75 confidence and verify citations
  extract leases/acme.pdf --multi-pass --threshold 0.75 --verify-citations

  # Read through the configured document source (fs, minio or ftp)
  extract acme.pdf --from-source`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.Bool("multi-pass", false, "re-extract low-confidence fields (overrides config)")
	f.Float64("threshold", 0, "refinement confidence threshold (0=use config)")
	f.Bool("verify-citations", false, "verify citations against PDF page text (overrides config)")
	f.Bool("from-source", false, "read the document from the configured document source")
	f.Bool("no-persist", false, "do not record the extraction in the store")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("extract"); err != nil {
		return err
	}

	multiPass, _ := cmd.Flags().GetBool("multi-pass")
	multiPass = multiPass || cfg.Extraction.MultiPass
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	verify, _ := cmd.Flags().GetBool("verify-citations")
	verify = verify || cfg.Citations.Verify
	fromSource, _ := cmd.Flags().GetBool("from-source")
	noPersist, _ := cmd.Flags().GetBool("no-persist")
	output, _ := cmd.Flags().GetString("output")

	name := args[0]
	data, err := readDocument(ctx, name, fromSource)
	if err != nil {
		return err
	}
	doc := extract.Document{
		Name:      filepath.Base(name),
		MediaType: docstore.MediaType(name),
		Data:      data,
	}

	ext, _, err := initExtractor()
	if err != nil {
		return err
	}

	var (
		st  store.Store
		rec *model.ExtractionRecord
	)
	if !noPersist {
		st, err = initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err = st.CreateExtraction(ctx, doc.Name)
		if err != nil {
			return err
		}
	}

	log := zap.L().With(zap.String("command", "extract"), zap.String("document", doc.Name))

	retry := cfg.Benchmark.Retry()
	retry.ShouldRetry = resilience.Retryable(anthropic.StatusCode)
	retry.OnRetry = resilience.RetryLogger(doc.Name, "extract")

	result, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.MergedExtraction, error) {
		if multiPass {
			return ext.ExtractWithRefinement(ctx, doc, threshold)
		}
		return ext.ExtractOnce(ctx, doc)
	})
	if err != nil {
		if rec != nil {
			if ferr := st.FailExtraction(context.WithoutCancel(ctx), rec.ID, err.Error()); ferr != nil {
				log.Warn("mark extraction failed", zap.Error(ferr))
			}
		}
		return eris.Wrap(err, "extract")
	}

	if verify && doc.MediaType == docstore.MediaTypePDF {
		if err := verifyCitations(ctx, cfg.Citations.Text, data, result); err != nil {
			log.Warn("citation verification skipped", zap.Error(err))
		}
	}

	if rec != nil {
		if err := st.CompleteExtraction(ctx, rec.ID, result); err != nil {
			return err
		}
		log.Info("extraction recorded", zap.String("id", rec.ID))
	}

	log.Info("extraction complete",
		zap.Bool("multi_pass", result.MultiPass),
		zap.Int("fields", len(result.NonNull())),
		zap.Strings("refined", result.RefinedFields),
		zap.Float64("total_cost", result.TotalCost),
	)

	return writeJSON(output, result)
}

// verifyCitations checks result's citations against the PDF text. Errors
// leave the citations unverified; the extraction itself still stands.
func verifyCitations(ctx context.Context, textCfg pdftext.Config, pdf []byte, result *model.MergedExtraction) error {
	text, err := pdftext.NewExtractor(textCfg)
	if err != nil {
		return err
	}
	return citation.NewVerifier(text).VerifyExtraction(ctx, pdf, result)
}

// readDocument reads a local file, or a named document from the configured
// source when fromSource is set.
func readDocument(ctx context.Context, name string, fromSource bool) ([]byte, error) {
	if !fromSource {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", name)
		}
		return data, nil
	}
	src, err := docstore.New(cfg.Documents)
	if err != nil {
		return nil, err
	}
	return src.Read(ctx, name)
}

// writeJSON writes v as indented JSON to path, or stdout when path is empty.
func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
