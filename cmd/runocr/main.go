package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/extract"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		logger.Error("unsupported file type", "path", path)
		os.Exit(2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	x, err := ocr.NewFromConfig(ctx, cfg.OCR, logger, nil)
	if err != nil {
		logger.Error("ocr setup", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	res, err := x.Extract(ctx, format, data)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	cleaned := extract.Normalize(res.Text)
	logger.Info("text extraction OK",
		"method", res.Method,
		"confidence", res.Confidence,
		"bytes", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Println(cleaned)
	for _, line := range extract.LikelyItemLines(cleaned, extract.DefaultItemLimit) {
		fmt.Fprintln(os.Stderr, "item?", line)
	}
}
