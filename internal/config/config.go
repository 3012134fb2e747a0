package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lease-abstract/internal/cost"
	"github.com/sells-group/lease-abstract/internal/docstore"
	"github.com/sells-group/lease-abstract/internal/pdftext"
	"github.com/sells-group/lease-abstract/internal/resilience"
	"github.com/sells-group/lease-abstract/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Benchmark  BenchmarkConfig  `yaml:"benchmark" mapstructure:"benchmark"`
	Documents  docstore.Config  `yaml:"documents" mapstructure:"documents"`
	Citations  CitationsConfig  `yaml:"citations" mapstructure:"citations"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ExtractionConfig configures prompts and refinement.
type ExtractionConfig struct {
	RefinementThreshold float64 `yaml:"refinement_threshold" mapstructure:"refinement_threshold"`
	MultiPass           bool    `yaml:"multi_pass" mapstructure:"multi_pass"`
	FieldsPath          string  `yaml:"fields_path" mapstructure:"fields_path"`
	PromptTemplatePath  string  `yaml:"prompt_template_path" mapstructure:"prompt_template_path"`
	FewShotPath         string  `yaml:"few_shot_path" mapstructure:"few_shot_path"`
	MaxFewShot          int     `yaml:"max_few_shot" mapstructure:"max_few_shot"`
}

// BenchmarkConfig configures gold-standard accuracy runs.
type BenchmarkConfig struct {
	DataDir          string `yaml:"data_dir" mapstructure:"data_dir"`
	GoldPath         string `yaml:"gold_path" mapstructure:"gold_path"`
	NumLeases        int    `yaml:"num_leases" mapstructure:"num_leases"`
	MaxFileBytes     int64  `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	ThrottleSecs     int    `yaml:"throttle_secs" mapstructure:"throttle_secs"`
	Label            string `yaml:"label" mapstructure:"label"`
	RetryAttempts    int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffSecs int    `yaml:"retry_backoff_secs" mapstructure:"retry_backoff_secs"`
	RetryMaxSecs     int    `yaml:"retry_max_backoff_secs" mapstructure:"retry_max_backoff_secs"`
	ScoreWorkers     int    `yaml:"score_workers" mapstructure:"score_workers"`
}

// Throttle returns the spacing between documents. A non-positive
// throttle_secs disables throttling.
func (b BenchmarkConfig) Throttle() time.Duration {
	if b.ThrottleSecs <= 0 {
		return -1
	}
	return time.Duration(b.ThrottleSecs) * time.Second
}

// Retry returns the retry policy for provider calls.
func (b BenchmarkConfig) Retry() resilience.RetryConfig {
	return resilience.FromRetryConfig(b.RetryAttempts, b.RetryBackoffSecs, b.RetryMaxSecs)
}

// CitationsConfig configures citation verification.
type CitationsConfig struct {
	Verify bool           `yaml:"verify" mapstructure:"verify"`
	Text   pdftext.Config `yaml:"text" mapstructure:"text"`
}

// MonitoringConfig configures accuracy regression alerts after benchmark
// runs. Drops are in percentage points.
type MonitoringConfig struct {
	WebhookURL         string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	AccuracyDropPoints float64 `yaml:"accuracy_drop_points" mapstructure:"accuracy_drop_points"`
	FieldDropPoints    float64 `yaml:"field_drop_points" mapstructure:"field_drop_points"`
	ErrorRateThreshold float64 `yaml:"error_rate_threshold" mapstructure:"error_rate_threshold"`
	CostThresholdUSD   float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	WebhookTimeoutSecs int     `yaml:"webhook_timeout_secs" mapstructure:"webhook_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path falls back to
// ./config.yaml, which may be absent; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are only read from the environment once known.
	for _, key := range []string{
		"anthropic.key",
		"benchmark.label",
		"extraction.fields_path",
		"extraction.prompt_template_path",
		"extraction.few_shot_path",
		"documents.minio.endpoint",
		"documents.minio.access_key",
		"documents.minio.secret_key",
		"documents.minio.bucket",
		"documents.minio.prefix",
		"documents.minio.use_ssl",
		"documents.ftp.url",
		"citations.text.mistral_api_key",
		"monitoring.webhook_url",
	} {
		_ = v.BindEnv(key)
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/lease.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8000)
	v.SetDefault("extraction.refinement_threshold", 0.70)
	v.SetDefault("extraction.multi_pass", false)
	v.SetDefault("extraction.max_few_shot", 30)
	v.SetDefault("benchmark.data_dir", "data")
	v.SetDefault("benchmark.gold_path", "data/gold_standard.json")
	v.SetDefault("benchmark.num_leases", 5)
	v.SetDefault("benchmark.max_file_bytes", 4718592)
	v.SetDefault("benchmark.throttle_secs", 300)
	v.SetDefault("benchmark.retry_attempts", 3)
	v.SetDefault("benchmark.retry_backoff_secs", 5)
	v.SetDefault("benchmark.retry_max_backoff_secs", 120)
	v.SetDefault("benchmark.score_workers", 4)
	v.SetDefault("documents.driver", docstore.DriverFS)
	v.SetDefault("documents.dir", "data/leases")
	v.SetDefault("documents.minio.region", "us-east-1")
	v.SetDefault("documents.ftp.timeout", "30s")
	v.SetDefault("monitoring.accuracy_drop_points", 5.0)
	v.SetDefault("monitoring.field_drop_points", 20.0)
	v.SetDefault("monitoring.error_rate_threshold", 0.2)
	v.SetDefault("monitoring.cost_threshold_usd", 25.0)
	v.SetDefault("monitoring.webhook_timeout_secs", 10)
	v.SetDefault("citations.verify", false)
	v.SetDefault("citations.text.provider", "local")
	v.SetDefault("citations.text.pdftotext_path", "pdftotext")
	v.SetDefault("citations.text.mistral_ocr_model", "mistral-ocr-latest")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
