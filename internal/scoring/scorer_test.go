package scoring

import (
	"math"
	"testing"

	"apextrader/internal/indicator"
	"apextrader/internal/model"
)

func testSnapshot(symbol string, price, quoteVolume float64) *model.Snapshot {
	return &model.Snapshot{
		Symbol: symbol,
		Price:  price,
		Stats:  model.Stats24h{QuoteVolume: quoteVolume},
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights should validate: %v", err)
	}

	bad := Weights{Volatility: 0.5, Volume: 0.5, Momentum: 0.5}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for weights summing to 1.5")
	}
}

func TestNew_RejectsInvalidWeights(t *testing.T) {
	if _, err := New(Weights{Volatility: 1.5}); err == nil {
		t.Fatal("expected error for invalid weights")
	}
}

func TestScore_InRange(t *testing.T) {
	s, err := New(DefaultWeights())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sets := []*indicator.Set{
		{RSI: 25, StochK: 15, StochD: 10, MACDCrossover: true, BBPosition: 0.05,
			Volatility: 4.2, Momentum: map[int]float64{15: 2, 60: 3, 240: 1.5}},
		{RSI: 75, StochK: 90, StochD: 85, MACDHistogram: -1, BBPosition: 0.95,
			Volatility: 0.1, Momentum: map[int]float64{15: -3, 60: -4, 240: -2}},
		{RSI: 50, BBPosition: 0.5},
	}
	for i, set := range sets {
		sc := s.Score(testSnapshot("TESTUSDT", 100, 5_000_000), set)
		if sc.Composite < 0 || sc.Composite > 10 {
			t.Errorf("set %d: composite out of [0,10]: %.2f", i, sc.Composite)
		}
		for name, v := range map[string]float64{
			"volatility": sc.Volatility, "volume": sc.Volume,
			"momentum": sc.Momentum, "technical": sc.Technical, "risk": sc.Risk,
		} {
			if v < 0 || v > 10 {
				t.Errorf("set %d: %s sub-score out of [0,10]: %.2f", i, name, v)
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	s, _ := New(DefaultWeights())
	set := &indicator.Set{RSI: 35, StochK: 25, StochD: 30, MACDHistogram: 0.5,
		BBPosition: 0.2, Volatility: 1.8, Momentum: map[int]float64{15: 0.5, 60: 1.2, 240: 0.8}}
	snap := testSnapshot("SOLUSDT", 150, 80_000_000)

	a := s.Score(snap, set)
	b := s.Score(snap, set)
	if a != b {
		t.Fatalf("scorer is not deterministic: %+v vs %+v", a, b)
	}
}

func TestVolatilityScore_Steps(t *testing.T) {
	cases := []struct {
		vol  float64
		want float64
	}{
		{3.5, 10}, {2.1, 8}, {1.5, 6}, {0.7, 4}, {0.2, 2},
	}
	for _, tc := range cases {
		if got := volatilityScore(tc.vol); got != tc.want {
			t.Errorf("volatilityScore(%.1f) = %.0f, want %.0f", tc.vol, got, tc.want)
		}
	}
}

func TestVolumeScore_Steps(t *testing.T) {
	cases := []struct {
		qv   float64
		want float64
	}{
		{200_000_000, 10}, {60_000_000, 8}, {20_000_000, 6}, {2_000_000, 4}, {500_000, 2},
	}
	for _, tc := range cases {
		if got := volumeScore(tc.qv); got != tc.want {
			t.Errorf("volumeScore(%.0f) = %.0f, want %.0f", tc.qv, got, tc.want)
		}
	}
}

func TestMomentumScore_StrongUptrend(t *testing.T) {
	got := momentumScore(map[int]float64{15: 1.5, 60: 2.0, 240: 1.2})
	if got != 10 {
		t.Errorf("expected 10 for all-positive momentum with avg > 1, got %.0f", got)
	}
}

func TestMomentumScore_StrongDowntrend(t *testing.T) {
	got := momentumScore(map[int]float64{15: -2, 60: -3, 240: -1.5})
	if got != 3 {
		t.Errorf("expected 3 for strong downtrend, got %.0f", got)
	}
}

func TestRiskScore_MajorCoinBonus(t *testing.T) {
	major := riskScore("BTCUSDT", 200_000_000)
	minor := riskScore("PEPEUSDT", 200_000_000)
	if major <= minor {
		t.Errorf("expected major-coin bonus: BTCUSDT=%.0f vs PEPEUSDT=%.0f", major, minor)
	}
	if major != 10 {
		t.Errorf("expected major high-volume risk score capped at 10, got %.0f", major)
	}
}

func TestRiskScore_ThinBookPenalty(t *testing.T) {
	got := riskScore("OBSCUREUSDT", 100_000)
	if math.Abs(got-3) > 1e-9 {
		t.Errorf("expected 3 for thin book, got %.0f", got)
	}
}

func TestTechnicalScore_OversoldBeatsOverbought(t *testing.T) {
	oversold := &indicator.Set{RSI: 25, StochK: 15, StochD: 10, MACDCrossover: true, BBPosition: 0.05, EMA50: 101, EMA200: 100}
	overbought := &indicator.Set{RSI: 75, StochK: 90, StochD: 88, MACDHistogram: -1, BBPosition: 0.95, EMA50: 99, EMA200: 100}

	lo := technicalScore(102, oversold)
	hi := technicalScore(102, overbought)
	if lo <= hi {
		t.Errorf("expected oversold setup to outscore overbought: %.2f vs %.2f", lo, hi)
	}
}
