// Package app wires configuration into the collaborators shared by the
// server and the command-line tools.
package app

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/events"
	"github.com/joseph-ayodele/ecoscore/internal/export"
	"github.com/joseph-ayodele/ecoscore/internal/llm"
	"github.com/joseph-ayodele/ecoscore/internal/llm/openai"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
	"github.com/joseph-ayodele/ecoscore/internal/repository"
	"github.com/joseph-ayodele/ecoscore/internal/search"
)

type App struct {
	Config    *common.Config
	Metrics   *observability.Metrics
	DB        *repository.DB
	Records   repository.RecordRepository
	OCR       *ocr.Extractor
	Carbon    *carbon.Service
	Publisher events.Publisher
	Processor *pipeline.Processor
	Exporter  *export.Service

	log *slog.Logger
}

// Build opens the database, runs the schema migration and constructs every
// collaborator. Missing LLM or search credentials leave those strategies off.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics()
	a := &App{Config: cfg, Metrics: metrics, log: logger}

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	a.DB = db
	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, common.WrapError(err, "migrate")
	}
	a.Records = repository.NewRecordRepository(db, logger)

	a.OCR, err = ocr.NewFromConfig(ctx, cfg.OCR, logger, metrics)
	if err != nil {
		a.Close()
		return nil, common.WrapError(err, "ocr")
	}

	var model llm.Completer
	if cfg.LLM.APIKey != "" {
		model = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		logger.Info("llm.enabled", "model", cfg.LLM.Model)
	} else {
		logger.Warn("llm.disabled", "reason", "OPENAI_API_KEY not set")
	}

	searcher, err := search.New(cfg.Search, logger)
	if err != nil {
		a.Close()
		return nil, common.WrapError(err, "search")
	}

	a.Carbon = carbon.NewService(model, searcher, logger,
		carbon.WithConcurrency(cfg.Carbon.Concurrency),
		carbon.WithMaxResults(cfg.Search.MaxResults),
		carbon.WithMetrics(metrics),
	)
	strategy, err := carbon.ParseStrategy(cfg.Carbon.Strategy)
	if err != nil {
		a.Close()
		return nil, common.WrapError(err, "carbon strategy")
	}
	a.Publisher = events.New(cfg.Events, logger)
	a.Processor = pipeline.NewProcessor(a.OCR, a.Carbon, a.Records, a.Publisher, logger,
		pipeline.WithItemLimit(cfg.Carbon.ReceiptItemLimit),
		pipeline.WithOCRTimeout(cfg.OCR.Timeout),
		pipeline.WithMetrics(metrics),
		pipeline.WithStrategy(strategy),
	)
	a.Exporter = export.NewService(a.Records, logger)
	return a, nil
}

// Close releases the publisher and database.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.log.Warn("events.close.failed", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
