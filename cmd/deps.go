package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/cost"
	"github.com/sells-group/lease-abstract/internal/extract"
	"github.com/sells-group/lease-abstract/internal/prompt"
	"github.com/sells-group/lease-abstract/internal/registry"
	"github.com/sells-group/lease-abstract/internal/store"
	"github.com/sells-group/lease-abstract/internal/validate"
	"github.com/sells-group/lease-abstract/pkg/anthropic"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "lease.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// initBuilder loads the field schema, prompt template and few-shot
// examples named in config.
func initBuilder() (*prompt.Builder, error) {
	reg, err := registry.Load(cfg.Extraction.FieldsPath)
	if err != nil {
		return nil, err
	}

	var opts []prompt.Option
	if p := cfg.Extraction.PromptTemplatePath; p != "" {
		tmpl, err := prompt.LoadTemplate(p)
		if err != nil {
			return nil, err
		}
		opts = append(opts, prompt.WithTemplate(tmpl))
	}
	if p := cfg.Extraction.FewShotPath; p != "" {
		examples, err := prompt.LoadExamples(p, cfg.Extraction.MaxFewShot)
		if err != nil {
			return nil, err
		}
		opts = append(opts, prompt.WithExamples(examples))
	}

	b := prompt.NewBuilder(reg, opts...)
	zap.L().Debug("prompt builder ready",
		zap.Int("fields", len(reg.Paths())),
		zap.String("prompt_version", b.Version()),
		zap.Int("few_shot", b.ExampleCount()),
	)
	return b, nil
}

// initExtractor wires the provider client, prompt builder, cost calculator
// and field validation into an Extractor.
func initExtractor() (*extract.Extractor, *prompt.Builder, error) {
	builder, err := initBuilder()
	if err != nil {
		return nil, nil, err
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	ext := extract.New(client, builder, cost.NewCalculator(cfg.Pricing), extract.Config{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Threshold: cfg.Extraction.RefinementThreshold,
	}, extract.WithValidator(validate.NewService(builder.Registry())))
	return ext, builder, nil
}
