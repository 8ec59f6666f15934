package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrStockNotFound indicates no stock row exists for the ticker.
	ErrStockNotFound = errors.New("storage: stock not found")
)

const (
	upsertStockSQL = `INSERT INTO stocks (ticker, name, sector, market_cap)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (ticker) DO UPDATE
    SET name       = EXCLUDED.name,
        sector     = EXCLUDED.sector,
        market_cap = EXCLUDED.market_cap,
        updated_at = now()
    RETURNING id;`

	upsertPriceSQL = `INSERT INTO prices (stock_id, date, open, high, low, close, volume)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (stock_id, date) DO UPDATE
    SET open   = EXCLUDED.open,
        high   = EXCLUDED.high,
        low    = EXCLUDED.low,
        close  = EXCLUDED.close,
        volume = EXCLUDED.volume;`

	insertFundamentalSQL = `INSERT INTO fundamentals (
        stock_id, quarter, revenue, net_income, eps, pe_ratio, debt_to_equity, reported_at
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	getStockByTickerSQL = `SELECT id, ticker, name, sector, market_cap, created_at, updated_at
    FROM stocks
    WHERE ticker = $1;`

	listRecentPricesSQL = `SELECT p.id, p.stock_id, p.date, p.open, p.high, p.low, p.close, p.volume
    FROM prices p
    JOIN stocks s ON s.id = p.stock_id
    WHERE s.ticker = $1
    ORDER BY p.date DESC
    LIMIT $2;`

	listPricesBetweenSQL = `SELECT p.id, p.stock_id, p.date, p.open, p.high, p.low, p.close, p.volume
    FROM prices p
    JOIN stocks s ON s.id = p.stock_id
    WHERE s.ticker = $1
      AND p.date >= $2
      AND p.date < $3
    ORDER BY p.date;`

	countStocksSQL = `SELECT COUNT(*) FROM stocks;`
)

// Writer groups the write operations available inside a symbol transaction.
// Stock upsert failures abort the transaction; price and fundamental writes
// run in savepoints so their failure can be absorbed by the caller.
type Writer interface {
	UpsertStock(ctx context.Context, stock Stock) (int64, error)
	UpsertPrice(ctx context.Context, price Price) error
	InsertFundamental(ctx context.Context, fundamental Fundamental) error
}

// StockReader exposes the read operations used by the CLI surfaces.
type StockReader interface {
	GetStockByTicker(ctx context.Context, ticker string) (Stock, error)
	ListRecentPrices(ctx context.Context, ticker string, limit int) ([]Price, error)
	ListPricesBetween(ctx context.Context, ticker string, from, to time.Time) ([]Price, error)
	CountStocks(ctx context.Context) (int64, error)
}

// Store provides market-data persistence over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InSymbolTx runs fn inside a transaction scoped to one symbol's writes.
// The transaction commits only when fn returns nil; any error or panic rolls
// every write for the symbol back.
func (s *Store) InSymbolTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin symbol tx: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit symbol tx: %w", err)
	}
	return nil
}

// txWriter executes writes on an open symbol transaction.
type txWriter struct {
	tx pgx.Tx
}

// UpsertStock inserts or updates a stock by ticker and returns its id.
func (w *txWriter) UpsertStock(ctx context.Context, stock Stock) (int64, error) {
	var id int64
	err := w.tx.QueryRow(ctx, upsertStockSQL,
		stock.Ticker,
		stock.Name,
		nullString(stock.Sector),
		stock.MarketCap,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert stock %s: %w", stock.Ticker, err)
	}
	return id, nil
}

// UpsertPrice writes one daily price row keyed by (stock_id, date). The
// statement runs in a savepoint: a failure surfaces to the caller without
// aborting the enclosing symbol transaction.
func (w *txWriter) UpsertPrice(ctx context.Context, price Price) error {
	return w.inSavepoint(ctx, func(nested pgx.Tx) error {
		_, err := nested.Exec(ctx, upsertPriceSQL,
			price.StockID,
			price.Date,
			price.Open,
			price.High,
			price.Low,
			price.Close,
			price.Volume,
		)
		if err != nil {
			return fmt.Errorf("upsert price: %w", err)
		}
		return nil
	})
}

// InsertFundamental appends one quarterly fundamentals row, in a savepoint
// like UpsertPrice.
func (w *txWriter) InsertFundamental(ctx context.Context, fundamental Fundamental) error {
	return w.inSavepoint(ctx, func(nested pgx.Tx) error {
		_, err := nested.Exec(ctx, insertFundamentalSQL,
			fundamental.StockID,
			fundamental.Quarter,
			fundamental.Revenue,
			fundamental.NetIncome,
			fundamental.EPS,
			fundamental.PERatio,
			fundamental.DebtToEquity,
			fundamental.ReportedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fundamental: %w", err)
		}
		return nil
	})
}

func (w *txWriter) inSavepoint(ctx context.Context, fn func(nested pgx.Tx) error) error {
	nested, err := w.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}
	if err := fn(nested); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}

// GetStockByTicker loads a stock row by its natural key.
func (s *Store) GetStockByTicker(ctx context.Context, ticker string) (Stock, error) {
	pool, err := s.getPool()
	if err != nil {
		return Stock{}, err
	}

	var (
		stock     Stock
		sector    sql.NullString
		marketCap sql.NullInt64
	)
	err = pool.QueryRow(ctx, getStockByTickerSQL, ticker).Scan(
		&stock.ID,
		&stock.Ticker,
		&stock.Name,
		&sector,
		&marketCap,
		&stock.CreatedAt,
		&stock.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, ErrStockNotFound
	}
	if err != nil {
		return Stock{}, fmt.Errorf("get stock %s: %w", ticker, err)
	}

	if sector.Valid {
		stock.Sector = sector.String
	}
	if marketCap.Valid {
		value := marketCap.Int64
		stock.MarketCap = &value
	}
	return stock, nil
}

// ListRecentPrices lists the most recent prices for a ticker, newest first.
func (s *Store) ListRecentPrices(ctx context.Context, ticker string, limit int) ([]Price, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPricesSQL, ticker, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent prices: %w", queryErr)
	}
	defer rows.Close()

	return scanPrices(rows, limit)
}

// ListPricesBetween lists a ticker's prices within [from, to).
func (s *Store) ListPricesBetween(ctx context.Context, ticker string, from, to time.Time) ([]Price, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPricesBetweenSQL, ticker, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list prices between: %w", queryErr)
	}
	defer rows.Close()

	return scanPrices(rows, 0)
}

// CountStocks counts stored stocks.
func (s *Store) CountStocks(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countStocksSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count stocks: %w", scanErr)
	}
	return count, nil
}

func scanPrices(rows pgx.Rows, sizeHint int) ([]Price, error) {
	prices := make([]Price, 0, sizeHint)
	for rows.Next() {
		var price Price
		if err := rows.Scan(
			&price.ID,
			&price.StockID,
			&price.Date,
			&price.Open,
			&price.High,
			&price.Low,
			&price.Close,
			&price.Volume,
		); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return prices, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

var _ StockReader = (*Store)(nil)
var _ Writer = (*txWriter)(nil)
