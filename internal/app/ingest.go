package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stock-ingest/internal/pipeline"
	"stock-ingest/internal/scheduler"
)

// Ingest runs the ETL pipeline for a batch of symbols, once or on a fixed
// interval in watch mode. Per-symbol skips and failures never produce a
// non-zero exit; only bootstrap failures do.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := a.newFetcher()
	if err != nil {
		return err
	}

	p := pipeline.New(f, store, a.Logger)

	runOnce := func(ctx context.Context) error {
		report := p.Run(ctx, opts.Symbols)
		printReport(report)
		return nil
	}

	if opts.Watch {
		sched := scheduler.New(scheduler.Options{Interval: opts.Interval}, a.Logger)
		a.Logger.Info().Dur("interval", opts.Interval).Msg("starting watch mode")
		err := sched.Run(ctx, runOnce)
		if errors.Is(err, context.Canceled) {
			a.Logger.Info().Msg("watch mode stopped")
			return nil
		}
		return err
	}

	return runOnce(ctx)
}

func printReport(report pipeline.Report) {
	for _, result := range report.Results {
		line := fmt.Sprintf("%s\t%s", result.Symbol, result.Status)
		if result.Reason != "" {
			line += "\t" + sanitizeInline(result.Reason)
		}
		fmt.Fprintln(os.Stdout, line)
	}
	fmt.Fprintf(os.Stdout, "succeeded: %d  failed: %d\n", len(report.Succeeded), len(report.Failed))
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
