package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"stock-ingest/internal/pipeline"
	"stock-ingest/internal/storage"
)

// Show prints a ticker's most recent stored prices.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	ticker := pipeline.Canonical(opts.Ticker)

	stock, err := store.GetStockByTicker(ctx, ticker)
	if errors.Is(err, storage.ErrStockNotFound) {
		fmt.Fprintf(os.Stdout, "no stock stored for %s\n", ticker)
		return nil
	}
	if err != nil {
		return err
	}

	prices, err := store.ListRecentPrices(ctx, ticker, opts.Limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s  %s  %s\n", stock.Ticker, stock.Name, stock.Sector)
	if len(prices) == 0 {
		fmt.Fprintln(os.Stdout, "no prices found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tOpen\tHigh\tLow\tClose\tVolume")
	for _, price := range prices {
		fmt.Fprintf(
			writer,
			"%s\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
			price.Date.Format("2006-01-02"),
			price.Open,
			price.High,
			price.Low,
			price.Close,
			price.Volume,
		)
	}

	return writer.Flush()
}
