package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/app"
	"github.com/joseph-ayodele/ecoscore/internal/async"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/ingest"
	"github.com/joseph-ayodele/ecoscore/internal/utils"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir     = flag.String("dir", "", "directory to process documents from (required)")
		user    = flag.String("user", "local", "user id the records are stored under")
		kindStr = flag.String("kind", "", "document kind for every file (receipt, energy, transport); inferred from folder names when empty")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		fromStr = flag.String("from", "", "from date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to date YYYY-MM-DD")
		watch   = flag.Bool("watch", false, "keep running and process files as they appear")
		workers = flag.Int("workers", 4, "concurrent documents when watching")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	var kind constants.DocumentKind
	if *kindStr != "" {
		k, ok := constants.ParseKind(*kindStr)
		if !ok {
			printError("Error: unknown --kind %q\n", *kindStr)
			os.Exit(1)
		}
		kind = k
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "ecoscore.xlsx")
	}
	from, err := utils.ParseOptionalYMD(*fromStr)
	if err != nil {
		printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	to, err := utils.ParseOptionalYMD(*toStr)
	if err != nil {
		printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ":memory:"
	}
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	ingestor := ingest.NewFSIngestor(a.Processor, *user, kind, logger)

	if *watch {
		runWatch(ctx, ingestor, *dir, *workers, a, logger)
		return
	}

	logger.Info("starting ingestion", "dir", *dir, "user", *user, "kind", kind)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, true, nil)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file failed", "path", r.Path, "error", r.Err)
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := a.Exporter.ExportRecordsXLSX(ctx, *user, from, to)
	if err != nil {
		logger.Error("failed to export records", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Files processed: %d\n", stats.Succeeded)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}

func runWatch(ctx context.Context, ingestor *ingest.FSIngestor, dir string, workers int, a *app.App, logger *slog.Logger) {
	queue := async.NewProcessorQueue(ingestor, logger,
		async.WithWorkers(workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(a.Config.OCR.Timeout+2*time.Minute),
		async.WithMetrics(a.Metrics),
	)

	paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		SkipHidden:  true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	logger.Info("watching", "dir", dir, "workers", workers)

	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			if err := queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: time.Now()}); err != nil {
				logger.Warn("enqueue failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watcher error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	st := queue.Stats()
	logger.Info("watch stopped", "succeeded", st.Succeeded, "failed", st.Failed)
}
