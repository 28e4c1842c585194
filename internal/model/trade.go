package model

import "time"

// Outcome classifies a closed trade.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakeven Outcome = "BREAKEVEN"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit  ExitReason = "TAKE_PROFIT"
	ExitStopLoss    ExitReason = "STOP_LOSS"
	ExitMaxDuration ExitReason = "MAX_DURATION"
	ExitEmergency   ExitReason = "EMERGENCY_STOP"
	ExitShutdown    ExitReason = "SHUTDOWN"
)

// Trade is the terminal, append-only record of a closed position.
// Written once on close, never mutated afterwards.
type Trade struct {
	ID         int64      `json:"id"`
	Symbol     string     `json:"symbol"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	EnteredAt  time.Time  `json:"entered_at"`
	ExitedAt   time.Time  `json:"exited_at"`
	PnLPct     float64    `json:"pnl_pct"`
	PnLQuote   float64    `json:"pnl_quote"`
	Outcome    Outcome    `json:"outcome"`
	ExitReason ExitReason `json:"exit_reason"`
	Score      Score      `json:"score"` // entry score breakdown
}

// Duration returns how long the position was held.
func (t *Trade) Duration() time.Duration {
	return t.ExitedAt.Sub(t.EnteredAt)
}

// OutcomeOf classifies a realized P&L percentage. Only strict losses
// count as LOSS; a flat trade is breakeven.
func OutcomeOf(pnlPct float64) Outcome {
	switch {
	case pnlPct > 0:
		return OutcomeWin
	case pnlPct < 0:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}

// AllTimeStats aggregates every recorded trade.
type AllTimeStats struct {
	TotalTrades   int       `json:"total_trades"`
	WinningTrades int       `json:"winning_trades"`
	LosingTrades  int       `json:"losing_trades"`
	WinRate       float64   `json:"win_rate"` // percent
	TotalPnLQuote float64   `json:"total_pnl_quote"`
	AvgPnLPct     float64   `json:"avg_pnl_pct"`
	BestTradePct  float64   `json:"best_trade_pct"`
	WorstTradePct float64   `json:"worst_trade_pct"`
	FirstTradeAt  time.Time `json:"first_trade_at,omitempty"`
	LastTradeAt   time.Time `json:"last_trade_at,omitempty"`
}

// DailyStats aggregates the closed trades of one trading day.
type DailyStats struct {
	Date          string  `json:"date"` // YYYY-MM-DD in the trading timezone
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // percent
	TotalPnLPct   float64 `json:"total_pnl_pct"`
	TotalPnLQuote float64 `json:"total_pnl_quote"`
	BestTradePct  float64 `json:"best_trade_pct"`
	WorstTradePct float64 `json:"worst_trade_pct"`
}
