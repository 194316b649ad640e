package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/llm"
	"github.com/joseph-ayodele/ecoscore/internal/llm/openai"
	"github.com/joseph-ayodele/ecoscore/internal/search"
)

func main() {
	var (
		strategy = flag.String("strategy", "", "llm, search, llm_search or auto (defaults to CARBON_STRATEGY)")
		extra    = flag.String("context", "", "context applied to items without their own")
		receipt  = flag.Bool("receipt", false, "estimate all items in one language-model call")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() == 0 {
		logger.Error("usage: carbon [--strategy s] [--context c] [--receipt] <item> [item...]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if *strategy == "" {
		*strategy = cfg.Carbon.Strategy
	}
	st, err := carbon.ParseStrategy(*strategy)
	if err != nil {
		logger.Error("invalid strategy", "error", err)
		os.Exit(2)
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
	}
	searcher, err := search.New(cfg.Search, logger)
	if err != nil {
		logger.Error("search setup", "error", err)
		os.Exit(1)
	}
	svc := carbon.NewService(model, searcher, logger,
		carbon.WithConcurrency(cfg.Carbon.Concurrency),
		carbon.WithMaxResults(cfg.Search.MaxResults),
	)

	items := make([]carbon.Item, flag.NArg())
	for i, name := range flag.Args() {
		items[i] = carbon.Item{Name: name}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var out any
	if *receipt {
		out, err = svc.EstimateReceiptItems(ctx, items, *extra)
	} else {
		out, err = svc.EstimateBatch(ctx, items, st, *extra)
	}
	if err != nil {
		logger.Error("estimate failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
