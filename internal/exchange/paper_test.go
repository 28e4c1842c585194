package exchange

import (
	"context"
	"math"
	"testing"

	"apextrader/internal/model"
)

type staticPrices struct {
	prices map[string]float64
}

func (s *staticPrices) TopInstruments(context.Context, int) ([]string, error) {
	out := make([]string, 0, len(s.prices))
	for sym := range s.prices {
		out = append(out, sym)
	}
	return out, nil
}

func (s *staticPrices) Snapshot(_ context.Context, symbol string) (*model.Snapshot, error) {
	return &model.Snapshot{Symbol: symbol, Price: s.prices[symbol]}, nil
}

func (s *staticPrices) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	return s.prices[symbol], nil
}

func TestPaperRoundTrip(t *testing.T) {
	md := &staticPrices{prices: map[string]float64{"BTCUSDT": 100}}
	p := NewPaper(md, 1000, 0, nil)
	ctx := context.Background()

	buy, err := p.MarketOrder(ctx, "BTCUSDT", model.SideBuy, 150, 0)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if math.Abs(buy.Quantity-1.5) > 1e-9 {
		t.Fatalf("buy qty = %v, want 1.5", buy.Quantity)
	}
	if bal, _ := p.Balance(ctx); math.Abs(bal-850) > 1e-9 {
		t.Fatalf("balance after buy = %v, want 850", bal)
	}

	md.prices["BTCUSDT"] = 104
	sell, err := p.MarketOrder(ctx, "BTCUSDT", model.SideSell, 0, buy.Quantity)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(sell.Price-104) > 1e-9 {
		t.Fatalf("sell price = %v, want 104", sell.Price)
	}
	if bal, _ := p.Balance(ctx); math.Abs(bal-1006) > 1e-9 {
		t.Fatalf("balance after sell = %v, want 1006", bal)
	}
}

func TestPaperSlippage(t *testing.T) {
	md := &staticPrices{prices: map[string]float64{"ETHUSDT": 2000}}
	p := NewPaper(md, 10000, 10, nil) // 0.10%
	ctx := context.Background()

	buy, err := p.MarketOrder(ctx, "ETHUSDT", model.SideBuy, 2000, 0)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if math.Abs(buy.Price-2002) > 1e-9 {
		t.Fatalf("buy fill price = %v, want 2002", buy.Price)
	}

	sell, err := p.MarketOrder(ctx, "ETHUSDT", model.SideSell, 0, buy.Quantity)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if math.Abs(sell.Price-1998) > 1e-9 {
		t.Fatalf("sell fill price = %v, want 1998", sell.Price)
	}
}

func TestPaperRejectsOverdraft(t *testing.T) {
	md := &staticPrices{prices: map[string]float64{"BTCUSDT": 100}}
	p := NewPaper(md, 100, 0, nil)

	if _, err := p.MarketOrder(context.Background(), "BTCUSDT", model.SideBuy, 500, 0); err == nil {
		t.Fatal("expected overdraft rejection")
	}
}

func TestPaperRejectsOversell(t *testing.T) {
	md := &staticPrices{prices: map[string]float64{"BTCUSDT": 100}}
	p := NewPaper(md, 1000, 0, nil)
	ctx := context.Background()

	if _, err := p.MarketOrder(ctx, "BTCUSDT", model.SideBuy, 100, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := p.MarketOrder(ctx, "BTCUSDT", model.SideSell, 0, 2.0); err == nil {
		t.Fatal("expected oversell rejection")
	}
}
