package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-ingest/internal/pipeline"
)

// Backfill loads historical daily prices for a single symbol.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	if opts.Symbol == "" {
		return errors.New("--symbol must be provided")
	}
	if opts.Days <= 0 {
		return errors.New("--days must be greater than zero")
	}

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

	result, err := pipeline.New(f, store, a.Logger).Backfill(ctx, opts.Symbol, opts.Days)
	if err != nil {
		return fmt.Errorf("backfill %s: %w", pipeline.Canonical(opts.Symbol), err)
	}

	fmt.Fprintf(os.Stdout, "%s: loaded %d price rows (%d missed)\n", result.Symbol, result.Loaded, result.Missed)
	return nil
}
