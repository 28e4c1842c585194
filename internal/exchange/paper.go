package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"apextrader/internal/model"
)

// Paper simulates order execution against live market data. Market
// reads pass through to the embedded provider; orders fill instantly at
// the current price adjusted by the configured slippage. This is the
// default mode.
type Paper struct {
	model.MarketData

	slippageBps float64
	log         *slog.Logger

	mu       sync.Mutex
	balance  float64
	holdings map[string]float64 // base quantity per symbol
	orderSeq int64
}

// NewPaper creates a simulator with the given starting quote balance.
// slippageBps is the simulated slippage in basis points (5 = 0.05%).
func NewPaper(md model.MarketData, startingBalance, slippageBps float64, log *slog.Logger) *Paper {
	if log == nil {
		log = slog.Default()
	}
	return &Paper{
		MarketData:  md,
		slippageBps: slippageBps,
		log:         log,
		balance:     startingBalance,
		holdings:    make(map[string]float64),
	}
}

// Balance returns the simulated free quote balance.
func (p *Paper) Balance(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

// MarketOrder fills at the live price plus slippage. BUY spends the
// quote notional; SELL disposes the base quantity.
func (p *Paper) MarketOrder(ctx context.Context, symbol string, side model.Side, notional, quantity float64) (*model.Fill, error) {
	price, err := p.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("paper: price %s: %w", symbol, err)
	}
	if price <= 0 {
		return nil, fmt.Errorf("paper: no price for %s", symbol)
	}

	slip := price * p.slippageBps / 10000

	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderSeq++

	var fill model.Fill
	switch side {
	case model.SideBuy:
		fillPrice := price + slip // buy higher
		if notional <= 0 {
			return nil, fmt.Errorf("paper: buy %s: non-positive notional", symbol)
		}
		if notional > p.balance {
			return nil, fmt.Errorf("paper: buy %s: notional %.2f exceeds balance %.2f", symbol, notional, p.balance)
		}
		qty := notional / fillPrice
		p.balance -= notional
		p.holdings[symbol] += qty
		fill = model.Fill{Symbol: symbol, Side: side, Price: fillPrice, Quantity: qty}

	case model.SideSell:
		fillPrice := price - slip // sell lower
		held := p.holdings[symbol]
		if quantity <= 0 || quantity > held+1e-12 {
			return nil, fmt.Errorf("paper: sell %s: quantity %.8f exceeds holding %.8f", symbol, quantity, held)
		}
		p.balance += quantity * fillPrice
		p.holdings[symbol] = held - quantity
		fill = model.Fill{Symbol: symbol, Side: side, Price: fillPrice, Quantity: quantity}

	default:
		return nil, fmt.Errorf("paper: unknown side %q", side)
	}

	p.log.Info("paper fill",
		"order", fmt.Sprintf("PAPER-%d", p.orderSeq),
		"symbol", symbol, "side", side,
		"price", fill.Price, "qty", fill.Quantity, "balance", p.balance)
	return &fill, nil
}
