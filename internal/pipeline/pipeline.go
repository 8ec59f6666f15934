// Package pipeline drives the Extract → Transform → Load flow for a batch of
// ticker symbols, one symbol at a time behind a shared rate-limited fetcher.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-ingest/internal/fetcher"
	"stock-ingest/internal/storage"
	"stock-ingest/internal/transform"
)

// Status is the terminal state of one symbol's pipeline run.
type Status string

const (
	// StatusDone means the stock record was loaded; dependent loads may
	// still have been absorbed as non-fatal.
	StatusDone Status = "done"
	// StatusSkipped means extract or the stock transform failed before
	// anything was written.
	StatusSkipped Status = "skipped"
	// StatusFailed means the stock write failed and the symbol's
	// transaction was rolled back.
	StatusFailed Status = "failed"
)

// Result records the outcome for one symbol.
type Result struct {
	Symbol string
	Status Status
	Reason string
}

// Report aggregates a batch run. Skipped symbols count as failed.
type Report struct {
	Succeeded []string
	Failed    []string
	Results   []Result
}

// BackfillResult summarises one historical backfill.
type BackfillResult struct {
	Symbol string
	Loaded int
	Missed int
}

// SymbolStore scopes all writes for one symbol to a single transaction.
type SymbolStore interface {
	InSymbolTx(ctx context.Context, fn func(ctx context.Context, w storage.Writer) error) error
}

// Pipeline composes fetcher, transformer, and storage for batch ingestion.
type Pipeline struct {
	fetcher fetcher.MarketDataFetcher
	store   SymbolStore
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs a Pipeline.
func New(f fetcher.MarketDataFetcher, store SymbolStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: f,
		store:   store,
		logger:  logger.With().Str("component", "pipeline").Logger(),
		now:     time.Now,
	}
}

// Run processes symbols strictly sequentially. Failures are isolated per
// symbol: the batch always completes (unless ctx is cancelled) and every
// skip or failure lands in the report with its reason.
func (p *Pipeline) Run(ctx context.Context, symbols []string) Report {
	report := Report{}
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			p.logger.Warn().Err(ctx.Err()).Msg("batch cancelled; remaining symbols not processed")
			break
		}

		result := p.processSymbol(ctx, symbol)
		report.Results = append(report.Results, result)
		if result.Status == StatusDone {
			report.Succeeded = append(report.Succeeded, result.Symbol)
		} else {
			report.Failed = append(report.Failed, result.Symbol)
		}
	}

	p.logger.Info().
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("batch complete")
	return report
}

func (p *Pipeline) processSymbol(ctx context.Context, rawSymbol string) (result Result) {
	symbol := Canonical(rawSymbol)
	result = Result{Symbol: symbol}
	logger := p.logger.With().Str("symbol", symbol).Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Reason = fmt.Sprintf("panic: %v", r)
			logger.Error().Str("reason", result.Reason).Msg("symbol failed")
		}
	}()

	logger.Info().Msg("extracting company overview")
	overview, overviewErr := p.fetcher.CompanyOverview(ctx, symbol)

	logger.Info().Msg("extracting global quote")
	quote, quoteErr := p.fetcher.GlobalQuote(ctx, symbol)

	if overviewErr != nil {
		result.Status = StatusSkipped
		result.Reason = fmt.Sprintf("fetch overview: %v", overviewErr)
		logger.Warn().Str("reason", result.Reason).Msg("symbol skipped")
		return result
	}

	stock, err := transform.Stock(symbol, overview)
	if err != nil {
		result.Status = StatusSkipped
		result.Reason = err.Error()
		logger.Warn().Str("reason", result.Reason).Msg("symbol skipped")
		return result
	}

	txErr := p.store.InSymbolTx(ctx, func(ctx context.Context, w storage.Writer) error {
		stockID, err := w.UpsertStock(ctx, stock)
		if err != nil {
			return err
		}
		logger.Info().Int64("stock_id", stockID).Msg("stock loaded")

		p.loadPrice(ctx, logger, w, stockID, quote, quoteErr)
		p.loadFundamental(ctx, logger, w, stockID, overview)
		return nil
	})
	if txErr != nil {
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("load stock: %v", txErr)
		logger.Error().Str("reason", result.Reason).Msg("symbol failed")
		return result
	}

	result.Status = StatusDone
	logger.Info().Msg("symbol processed")
	return result
}

// loadPrice transforms and writes the day's price. Any failure here is
// non-fatal to the symbol.
func (p *Pipeline) loadPrice(ctx context.Context, logger zerolog.Logger, w storage.Writer, stockID int64, quote []byte, quoteErr error) {
	if quoteErr != nil {
		logger.Warn().Err(quoteErr).Msg("quote fetch failed; price not loaded")
		return
	}
	price, err := transform.Price(stockID, quote, p.now())
	if err != nil {
		logger.Warn().Err(err).Msg("price not loaded")
		return
	}
	if err := w.UpsertPrice(ctx, price); err != nil {
		logger.Error().Err(err).Msg("price write failed; continuing")
	}
}

// loadFundamental transforms and writes the quarterly fundamentals. Any
// failure here is non-fatal to the symbol.
func (p *Pipeline) loadFundamental(ctx context.Context, logger zerolog.Logger, w storage.Writer, stockID int64, overview []byte) {
	fundamental, err := transform.Fundamental(stockID, overview, p.now())
	if err != nil {
		logger.Warn().Err(err).Msg("fundamental not loaded")
		return
	}
	if err := w.InsertFundamental(ctx, fundamental); err != nil {
		logger.Error().Err(err).Msg("fundamental write failed; continuing")
	}
}

// Backfill loads up to days of daily history for one symbol.
func (p *Pipeline) Backfill(ctx context.Context, rawSymbol string, days int) (BackfillResult, error) {
	symbol := Canonical(rawSymbol)
	result := BackfillResult{Symbol: symbol}
	logger := p.logger.With().Str("symbol", symbol).Logger()

	overview, err := p.fetcher.CompanyOverview(ctx, symbol)
	if err != nil {
		return result, fmt.Errorf("fetch overview: %w", err)
	}
	stock, err := transform.Stock(symbol, overview)
	if err != nil {
		return result, err
	}

	series, err := p.fetcher.DailySeries(ctx, symbol)
	if err != nil {
		return result, fmt.Errorf("fetch daily series: %w", err)
	}

	txErr := p.store.InSymbolTx(ctx, func(ctx context.Context, w storage.Writer) error {
		stockID, err := w.UpsertStock(ctx, stock)
		if err != nil {
			return err
		}

		prices, err := transform.DailyPrices(stockID, series, days)
		if err != nil {
			return err
		}

		for _, price := range prices {
			if err := w.UpsertPrice(ctx, price); err != nil {
				result.Missed++
				logger.Error().Err(err).Time("date", price.Date).Msg("price write failed; continuing")
				continue
			}
			result.Loaded++
		}
		return nil
	})
	if txErr != nil {
		return result, txErr
	}

	logger.Info().Int("loaded", result.Loaded).Int("missed", result.Missed).Msg("backfill complete")
	return result, nil
}

// Canonical normalizes a raw symbol to its canonical upper-case form.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

var _ SymbolStore = (*storage.Store)(nil)
