package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Pages writes the PDF to a temp file, runs pdftotext -layout on it and
// splits the output on form feeds.
func (p *PdfToText) Pages(ctx context.Context, pdf []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "lease-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		return nil, eris.Wrap(err, "pdftext: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "pdftext: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "pdftext: pdftotext failed: %s", stderr.String())
	}

	return SplitPages(stdout.String()), nil
}

// SplitPages splits pdftotext output into pages. pdftotext ends every page
// with a form feed, so a trailing empty page is dropped.
func SplitPages(out string) []string {
	pages := strings.Split(out, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
