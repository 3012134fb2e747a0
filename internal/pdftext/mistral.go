package pdftext

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
	mistralTimeout      = 3 * time.Minute
)

// MistralOCR reads page text from scanned leases through the Mistral OCR
// API. Rate limiting and 5xx responses are retried.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// NewMistralOCR creates a MistralOCR extractor. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("pdftext: retrying mistral ocr", zap.Int("attempt", attempt), zap.Error(err))
	}
	return &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{Timeout: mistralTimeout},
		retry:    retry,
	}
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

type ocrPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// Pages returns the markdown of every page, ordered by page index.
func (m *MistralOCR) Pages(ctx context.Context, pdf []byte) ([]string, error) {
	body, err := json.Marshal(ocrRequest{
		Model: m.model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: marshal mistral request")
	}

	parsed, err := resilience.DoVal(ctx, m.retry, func(ctx context.Context) (*ocrResponse, error) {
		return m.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(parsed.Pages, func(i, j int) bool {
		return parsed.Pages[i].Index < parsed.Pages[j].Index
	})
	pages := make([]string, len(parsed.Pages))
	for i, p := range parsed.Pages {
		pages[i] = p.Markdown
	}
	return pages, nil
}

func (m *MistralOCR) post(ctx context.Context, body []byte) (*ocrResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: mistral request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pdftext: read mistral response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("pdftext: mistral API returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var out ocrResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "pdftext: unmarshal mistral response")
	}
	return &out, nil
}
