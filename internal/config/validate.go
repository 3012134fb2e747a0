package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lease-abstract/internal/docstore"
)

// Validate checks the keys a command needs. Every problem is reported.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "extract":
		require(c.Anthropic.Key != "", "anthropic.key is required")
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateExtraction()...)
		errs = append(errs, c.validateCitations()...)
	case "benchmark":
		require(c.Anthropic.Key != "", "anthropic.key is required")
		require(c.Benchmark.GoldPath != "", "benchmark.gold_path is required")
		require(c.Benchmark.DataDir != "", "benchmark.data_dir is required")
		require(c.Benchmark.NumLeases >= 0, "benchmark.num_leases must be >= 0")
		require(c.Benchmark.MaxFileBytes > 0, "benchmark.max_file_bytes must be > 0")
		errs = append(errs, c.validateExtraction()...)
		errs = append(errs, c.validateDocuments()...)
		errs = append(errs, c.validateMonitoring()...)
	case "score", "export":
		require(c.Benchmark.DataDir != "", "benchmark.data_dir is required")
	case "gold":
		require(c.Benchmark.GoldPath != "", "benchmark.gold_path is required")
	case "runs", "migrate":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func (c *Config) validateExtraction() []string {
	var errs []string
	if t := c.Extraction.RefinementThreshold; t < 0 || t > 1 {
		errs = append(errs, "extraction.refinement_threshold must be between 0 and 1")
	}
	if c.Extraction.MaxFewShot < 0 {
		errs = append(errs, "extraction.max_few_shot must be >= 0")
	}
	return errs
}

func (c *Config) validateDocuments() []string {
	d := c.Documents
	switch d.Driver {
	case "", docstore.DriverFS:
		if d.Dir == "" {
			return []string{"documents.dir is required"}
		}
	case docstore.DriverMinIO:
		var errs []string
		if d.MinIO.Endpoint == "" {
			errs = append(errs, "documents.minio.endpoint is required")
		}
		if d.MinIO.Bucket == "" {
			errs = append(errs, "documents.minio.bucket is required")
		}
		return errs
	case docstore.DriverFTP:
		if d.FTP.URL == "" {
			return []string{"documents.ftp.url is required"}
		}
	default:
		return []string{"documents.driver must be fs, minio or ftp"}
	}
	return nil
}

func (c *Config) validateCitations() []string {
	if !c.Citations.Verify {
		return nil
	}
	t := c.Citations.Text
	switch t.Provider {
	case "", "local":
	case "mistral":
		if t.MistralKey == "" {
			return []string{"citations.text.mistral_api_key is required for the mistral provider"}
		}
	default:
		return []string{"citations.text.provider must be local or mistral"}
	}
	return nil
}

func (c *Config) validateMonitoring() []string {
	m := c.Monitoring
	var errs []string
	if m.WebhookURL != "" {
		u, err := url.Parse(m.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, "monitoring.webhook_url must be an http(s) URL")
		}
	}
	if m.AccuracyDropPoints < 0 || m.FieldDropPoints < 0 || m.ErrorRateThreshold < 0 || m.CostThresholdUSD < 0 {
		errs = append(errs, "monitoring thresholds must be >= 0")
	}
	return errs
}
