package model

import "time"

// Position is a live long position owned by the engine. Exactly one
// position may be open at a time; it is created on fill confirmation and
// converted to a Trade on exit.
type Position struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	Notional   float64   `json:"notional"` // quote currency committed at entry
	EnteredAt  time.Time `json:"entered_at"`

	TakeProfit float64 `json:"take_profit"` // absolute price level
	StopLoss   float64 `json:"stop_loss"`   // absolute price level

	// Trailing stop state: highest price seen while open. Zero when
	// trailing is disabled.
	HighWater float64 `json:"high_water,omitempty"`

	Score Score `json:"score"` // score breakdown at entry
}

// PnLPct returns the unrealized P&L percentage at the given price.
func (p *Position) PnLPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// PnLQuote returns the unrealized P&L in quote currency at the given price.
func (p *Position) PnLQuote(price float64) float64 {
	return (price - p.EntryPrice) * p.Quantity
}
