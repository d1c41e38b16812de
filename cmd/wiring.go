package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-agent/internal/agents"
	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/ai/gemini"
	"github.com/spigell/resume-agent/internal/document"
	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/secrets"
	"github.com/spigell/resume-agent/internal/storage"
	"github.com/spigell/resume-agent/internal/workflow"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// application holds the wired collaborators shared by the commands.
type application struct {
	config       *Config
	logger       *zap.Logger
	codec        *extract.Codec
	store        storage.Store
	orchestrator *workflow.Orchestrator
	closers      []func() error
}

func (a *application) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
}

func newLogger() (*zap.Logger, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}
	return log, nil
}

// bootstrap loads the config and the logger and, when withWorkflow is set,
// wires the orchestrator and its agents.
func bootstrap(ctx context.Context, withWorkflow bool) (*application, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	app := &application{config: config, logger: log, codec: extract.NewCodec()}

	store, closeStore, err := buildStore(ctx, config.Storage, app.codec, log)
	if err != nil {
		return nil, err
	}
	app.store = store
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	if !withWorkflow {
		return app, nil
	}

	orchestrator, err := buildOrchestrator(ctx, config, store, app.codec, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.orchestrator = orchestrator

	return app, nil
}

func buildStore(ctx context.Context, cfg StorageConfig, codec *extract.Codec, log *zap.Logger) (storage.Store, func() error, error) {
	switch cfg.Driver {
	case driverRedis:
		store, err := storage.NewRedisStore(ctx, storage.RedisOptions{
			URL:    cfg.Redis.URL,
			Prefix: cfg.Redis.Prefix,
			TTL:    cfg.Redis.TTL,
		}, codec, log)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting redis store: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := storage.NewFileStore(cfg.BasePath, codec, log)
		if err != nil {
			return nil, nil, fmt.Errorf("creating file store: %w", err)
		}
		return store, nil, nil
	}
}

func buildGenerator(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Generator, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case gemini.Provider:
		apiKey, err := secrets.LoadOptional(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, "", err
		}

		generator, err := gemini.NewGenerator(ctx, gemini.Options{
			APIKey:            apiKey,
			Model:             cfg.Gemini.Model,
			Temperature:       &cfg.Gemini.Temperature,
			MaxOutputTokens:   cfg.Gemini.MaxOutputTokens,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
			MaxLogLength:      cfg.Gemini.MaxLogLength,
		}, log)
		if errors.Is(err, ai.ErrModelUnavailable) {
			log.Warn("model backend is not configured, every workflow will fail",
				zap.String(logger.FieldProvider, provider),
				zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key"),
			)
			return ai.Unavailable{}, cfg.Gemini.Model, nil
		}
		if err != nil {
			return nil, "", err
		}
		return generator, generator.Model(), nil
	default:
		return nil, "", fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

func buildOrchestrator(ctx context.Context, config *Config, store storage.Store, codec *extract.Codec, log *zap.Logger) (*workflow.Orchestrator, error) {
	generator, model, err := buildGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, err
	}

	aiLogger := logger.WithCommonFields(log, config.AI.Provider, model)

	deps := agents.Deps{
		Model:        ai.NewRetrier(generator, config.AI.MaxAttempts, config.AI.BaseDelay, aiLogger),
		Codec:        codec,
		Logger:       aiLogger,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}

	extractor, err := document.NewExtractor(ctx, config.PDF.MaxFileSize, log)
	if err != nil {
		return nil, fmt.Errorf("creating resume extractor: %w", err)
	}

	return workflow.New(workflow.Deps{
		Requirements: agents.NewRequirementsParser(deps),
		Profiles:     agents.NewProfileParser(deps),
		Analyzer:     agents.NewFitAnalyzer(deps),
		Tailor:       agents.NewResumeTailor(deps),
		Coach:        agents.NewInterviewCoach(deps),
		Extractor:    extractor,
		Renderer:     document.NewRenderer(log),
		Store:        store,
		Logger:       log,
	}, workflow.Options{
		Threshold: config.Workflow.FitScoreThreshold,
		OutputDir: config.Workflow.OutputDir,
	})
}
