package model

import "context"

// ── Collaborator port interfaces ──
// These decouple the engine and scanner from concrete implementations
// (REST exchange client, paper simulator, SQLite store).

// Side is an order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is the confirmed result of a market order.
type Fill struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// MarketData provides read-only market views. Implementations must
// bound every call with the context deadline.
type MarketData interface {
	// TopInstruments returns up to n instrument symbols ranked by 24h
	// quote volume.
	TopInstruments(ctx context.Context, n int) ([]string, error)

	// Snapshot fetches the bar window and 24h stats for one instrument.
	Snapshot(ctx context.Context, symbol string) (*Snapshot, error)

	// CurrentPrice returns the latest traded price for one instrument.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderExecutor places orders and reports balance.
type OrderExecutor interface {
	// MarketOrder submits a market order for the given quote-currency
	// notional (BUY) or base quantity (SELL) and returns the fill.
	MarketOrder(ctx context.Context, symbol string, side Side, notional, quantity float64) (*Fill, error)

	// Balance returns the free quote-currency balance.
	Balance(ctx context.Context) (float64, error)
}

// Exchange combines the market-data and execution ports.
type Exchange interface {
	MarketData
	OrderExecutor
}

// TradeStore persists closed trades and serves history queries.
type TradeStore interface {
	// AppendTrade writes a closed trade record. Returns the assigned ID.
	AppendTrade(ctx context.Context, t Trade) (int64, error)

	// RecentTrades returns up to limit trades, newest first.
	RecentTrades(ctx context.Context, limit int) ([]Trade, error)

	// DailyStats aggregates trades closed on the given day (YYYY-MM-DD
	// in the trading timezone).
	DailyStats(ctx context.Context, date string) (DailyStats, error)

	// Close releases underlying resources.
	Close() error
}
