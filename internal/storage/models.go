package storage

import "time"

// Stock is a tracked company, keyed naturally by ticker symbol.
type Stock struct {
	ID        int64
	Ticker    string
	Name      string
	Sector    string
	MarketCap *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Price is one daily OHLCV observation for a stock.
type Price struct {
	ID      int64
	StockID int64
	Date    time.Time
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  int64
}

// Fundamental is a quarterly snapshot of company financials. Fields the
// provider omits or reports as "None" stay nil.
type Fundamental struct {
	ID           int64
	StockID      int64
	Quarter      string
	Revenue      *int64
	NetIncome    *int64
	EPS          *float64
	PERatio      *float64
	DebtToEquity *float64
	ReportedAt   time.Time
}
