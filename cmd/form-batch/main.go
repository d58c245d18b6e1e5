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

	"github.com/joseph-ayodele/form-extractor/constants"
	"github.com/joseph-ayodele/form-extractor/internal/async"
	"github.com/joseph-ayodele/form-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/entity"
	"github.com/joseph-ayodele/form-extractor/internal/export"
	"github.com/joseph-ayodele/form-extractor/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process documents from (required)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		variantStr = flag.String("variant", string(constants.VariantFormEntities), "text | form | form_entities")
		inmem      = flag.Bool("inmem", false, "record runs in an in-memory SQLite ledger")
		watch      = flag.Bool("watch", false, "keep running and process files as they appear")
		hidden     = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	variant, ok := constants.ParseVariant(*variantStr)
	if !ok {
		printError("Error: unknown --variant %q\n", *variantStr)
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "forms.xlsx")
	}

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.DSN = ":memory:"
	}
	logger := common.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	loader := ingest.NewFSLoader(logger)
	exporter := export.NewService(logger)
	queueOpts := []async.Option{
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	}

	if *watch {
		if err := runWatch(ctx, app, loader, exporter, variant, *dir, *out, queueOpts); err != nil {
			logger.Error("watch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	loaded, stats, err := loader.LoadDirectory(ctx, *dir, !*hidden)
	if err != nil {
		logger.Error("failed to load directory", "error", err)
		os.Exit(1)
	}

	var jobs []async.Job
	for _, r := range loaded {
		if r.Err == "" && !r.Deduplicated {
			jobs = append(jobs, async.Job{Document: r.Document, Variant: variant})
		}
	}

	start := time.Now()
	results, err := async.Collect(ctx, app.Orchestrator, jobs, logger, queueOpts...)
	if err != nil {
		logger.Error("batch interrupted", "error", err)
		os.Exit(1)
	}

	if err := writeWorkbook(exporter, results, *out); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"processed", len(results)-failures,
		"failures", failures,
		"output", *out,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if failures > 0 {
		os.Exit(3)
	}
}

// runWatch processes files as they appear and rewrites the workbook after each outcome.
func runWatch(ctx context.Context, app *bootstrap.App, loader *ingest.FSLoader, exporter *export.Service,
	variant constants.Variant, dir, out string, opts []async.Option) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      app.Logger,
	})
	if err != nil {
		return err
	}

	outcomes := async.NewOutcomes()
	q := async.NewProcessorQueue(app.Orchestrator, app.Logger, append(opts, async.WithOnResult(outcomes.Record))...)
	defer q.Shutdown(context.Background())

	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			doc, err := loader.LoadPath(path)
			if err != nil {
				app.Logger.Warn("watch.load.failed", "path", path, "error", err)
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Document: doc, Variant: variant}); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			app.Logger.Warn("watch.error", "error", err)
		case <-outcomes.Updated():
			if err := writeWorkbook(exporter, outcomes.Snapshot(), out); err != nil {
				app.Logger.Error("watch.export.failed", "error", err)
			}
		}
	}
}

func writeWorkbook(exporter *export.Service, results []entity.DocumentResult, out string) error {
	xlsx, err := exporter.WorkbookXLSX(results)
	if err != nil {
		return err
	}
	return os.WriteFile(out, xlsx, 0o644)
}
