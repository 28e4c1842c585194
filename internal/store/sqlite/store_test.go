package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"apextrader/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trades.db"), time.UTC, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTrade(symbol string, pnlPct float64, exitedAt time.Time) model.Trade {
	entry := 100.0
	exit := entry * (1 + pnlPct/100)
	return model.Trade{
		Symbol:     symbol,
		EntryPrice: entry,
		ExitPrice:  exit,
		Quantity:   1.5,
		EnteredAt:  exitedAt.Add(-10 * time.Minute),
		ExitedAt:   exitedAt,
		PnLPct:     pnlPct,
		PnLQuote:   (exit - entry) * 1.5,
		Outcome:    model.OutcomeOf(pnlPct),
		ExitReason: model.ExitTakeProfit,
		Score:      model.Score{Symbol: symbol, Composite: 8.2},
	}
}

func TestAppendAndRecentTrades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, pnl := range []float64{2.0, -1.5, 4.0} {
		id, err := s.AppendTrade(ctx, testTrade("BTCUSDT", pnl, base.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if id != int64(i+1) {
			t.Fatalf("id = %d, want %d", id, i+1)
		}
	}

	trades, err := s.RecentTrades(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("len = %d, want 2", len(trades))
	}
	// Newest first.
	if trades[0].PnLPct != 4.0 || trades[1].PnLPct != -1.5 {
		t.Fatalf("order wrong: %+v", trades)
	}
	if trades[0].Score.Composite != 8.2 {
		t.Fatalf("score not round-tripped: %+v", trades[0].Score)
	}
	if trades[0].Outcome != model.OutcomeWin {
		t.Fatalf("outcome = %s, want WIN", trades[0].Outcome)
	}
}

func TestDailyStatsBuckets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Two trades on March 1, one just after midnight on March 2.
	s.AppendTrade(ctx, testTrade("A", 2.0, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	s.AppendTrade(ctx, testTrade("B", -1.0, time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)))
	s.AppendTrade(ctx, testTrade("C", 3.0, time.Date(2024, 3, 2, 0, 0, 1, 0, time.UTC)))

	day1, err := s.DailyStats(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if day1.TotalTrades != 2 || day1.WinningTrades != 1 || day1.LosingTrades != 1 {
		t.Fatalf("day1 = %+v", day1)
	}
	if math.Abs(day1.TotalPnLPct-1.0) > 1e-9 {
		t.Fatalf("day1 pnl = %v, want 1.0", day1.TotalPnLPct)
	}
	if day1.WinRate != 50 {
		t.Fatalf("day1 win rate = %v, want 50", day1.WinRate)
	}
	if day1.BestTradePct != 2.0 || day1.WorstTradePct != -1.0 {
		t.Fatalf("day1 best/worst = %v/%v", day1.BestTradePct, day1.WorstTradePct)
	}

	day2, err := s.DailyStats(ctx, "2024-03-02")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if day2.TotalTrades != 1 || day2.TotalPnLPct != 3.0 {
		t.Fatalf("day2 = %+v", day2)
	}
}

func TestDailyStatsEmptyDay(t *testing.T) {
	s := openTestStore(t)

	st, err := s.DailyStats(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if st.TotalTrades != 0 || st.WinRate != 0 {
		t.Fatalf("empty day = %+v", st)
	}
}

func TestDailyHistoryOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.AppendTrade(ctx, testTrade("A", 1.0, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	s.AppendTrade(ctx, testTrade("B", 1.0, time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)))
	s.AppendTrade(ctx, testTrade("C", 1.0, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)))

	hist, err := s.DailyHistory(ctx, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("len = %d, want 2", len(hist))
	}
	if hist[0].Date != "2024-03-03" || hist[1].Date != "2024-03-02" {
		t.Fatalf("order = %s, %s", hist[0].Date, hist[1].Date)
	}
}

func TestAllTimeStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, pnl := range []float64{2.0, -1.0, 4.0, -0.5} {
		s.AppendTrade(ctx, testTrade("X", pnl, base.Add(time.Duration(i)*time.Hour)))
	}

	st, err := s.AllTimeStats(ctx)
	if err != nil {
		t.Fatalf("all-time: %v", err)
	}
	if st.TotalTrades != 4 || st.WinningTrades != 2 || st.LosingTrades != 2 {
		t.Fatalf("counts = %+v", st)
	}
	if st.WinRate != 50 {
		t.Fatalf("win rate = %v, want 50", st.WinRate)
	}
	if st.BestTradePct != 4.0 || st.WorstTradePct != -1.0 {
		t.Fatalf("best/worst = %v/%v", st.BestTradePct, st.WorstTradePct)
	}
	if !st.LastTradeAt.Equal(base.Add(3 * time.Hour)) {
		t.Fatalf("last trade at = %v", st.LastTradeAt)
	}
}

func TestAllTimeStatsEmpty(t *testing.T) {
	s := openTestStore(t)

	st, err := s.AllTimeStats(context.Background())
	if err != nil {
		t.Fatalf("all-time: %v", err)
	}
	if st.TotalTrades != 0 || !st.FirstTradeAt.IsZero() {
		t.Fatalf("empty stats = %+v", st)
	}
}

func TestTimezoneBucketing(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s, err := Open(filepath.Join(t.TempDir(), "trades.db"), loc, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	// 02:00 UTC March 2 is still March 1 in New York.
	s.AppendTrade(ctx, testTrade("A", 1.0, time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)))

	st, err := s.DailyStats(ctx, "2024-03-01")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if st.TotalTrades != 1 {
		t.Fatalf("trade not bucketed into local day: %+v", st)
	}
}
