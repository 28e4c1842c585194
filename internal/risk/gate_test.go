package risk

import (
	"testing"
	"time"
)

func testLimits() Limits {
	return Limits{
		DailyLossLimitPct:    3.0,
		MaxTradesPerDay:      10,
		MaxConsecutiveLosses: 3,
		PauseDuration:        time.Hour,
	}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestGateAllowsFreshDay(t *testing.T) {
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(testLimits(), time.UTC, now)

	d := g.CanTrade(now)
	if !d.Allowed {
		t.Fatalf("fresh gate denied: %v", d.Reason)
	}
}

func TestGateConsecutiveLossPause(t *testing.T) {
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(testLimits(), time.UTC, now)

	for i := 0; i < 3; i++ {
		g.RecordOutcome(-0.5, now.Add(time.Duration(i)*time.Minute))
	}

	at := now.Add(5 * time.Minute)
	d := g.CanTrade(at)
	if d.Allowed {
		t.Fatal("expected denial after 3 consecutive losses")
	}
	if d.Reason != ReasonConsecutiveLossPause {
		t.Fatalf("reason = %v, want %v", d.Reason, ReasonConsecutiveLossPause)
	}
	wantResume := now.Add(2 * time.Minute).Add(time.Hour)
	if !d.ResumeAt.Equal(wantResume) {
		t.Fatalf("resume at %v, want %v", d.ResumeAt, wantResume)
	}

	// Pause expires after the configured duration.
	d = g.CanTrade(wantResume.Add(time.Second))
	if !d.Allowed {
		t.Fatalf("still denied after pause expiry: %v", d.Reason)
	}
}

func TestGateWinResetsLossStreak(t *testing.T) {
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(testLimits(), time.UTC, now)

	g.RecordOutcome(-0.5, now)
	g.RecordOutcome(-0.5, now.Add(time.Minute))
	g.RecordOutcome(1.2, now.Add(2*time.Minute))

	if got := g.Snapshot().ConsecutiveLosses; got != 0 {
		t.Fatalf("consecutive losses = %d after win, want 0", got)
	}

	// Two more losses stay under the threshold.
	g.RecordOutcome(-0.5, now.Add(3*time.Minute))
	g.RecordOutcome(-0.5, now.Add(4*time.Minute))
	if d := g.CanTrade(now.Add(5 * time.Minute)); !d.Allowed {
		t.Fatalf("denied with only 2 losses since win: %v", d.Reason)
	}
}

func TestGateDailyLossLimit(t *testing.T) {
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(testLimits(), time.UTC, now)

	g.RecordOutcome(-1.5, now)
	g.RecordOutcome(1.0, now.Add(time.Minute)) // win keeps streak clear
	g.RecordOutcome(-2.6, now.Add(2*time.Minute))

	d := g.CanTrade(now.Add(3 * time.Minute))
	if d.Allowed {
		t.Fatal("expected denial at daily loss limit")
	}
	if d.Reason != ReasonDailyLossLimit {
		t.Fatalf("reason = %v, want %v", d.Reason, ReasonDailyLossLimit)
	}
	if want := mustTime(t, "2024-03-02T00:00:00Z"); !d.ResumeAt.Equal(want) {
		t.Fatalf("resume at %v, want %v", d.ResumeAt, want)
	}
}

func TestGateMaxTradesPerDay(t *testing.T) {
	limits := testLimits()
	limits.MaxTradesPerDay = 2
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(limits, time.UTC, now)

	g.RecordOutcome(0.5, now)
	g.RecordOutcome(0.5, now.Add(time.Minute))

	d := g.CanTrade(now.Add(2 * time.Minute))
	if d.Allowed {
		t.Fatal("expected denial at max trades per day")
	}
	if d.Reason != ReasonMaxTradesReached {
		t.Fatalf("reason = %v, want %v", d.Reason, ReasonMaxTradesReached)
	}
}

func TestGateDayRollover(t *testing.T) {
	now := mustTime(t, "2024-03-01T23:00:00Z")
	g := NewGate(testLimits(), time.UTC, now)

	// Trade closed at 23:59:59 counts toward the old day.
	g.RecordOutcome(-2.0, mustTime(t, "2024-03-01T23:59:59Z"))
	st := g.Snapshot()
	if st.TradesToday != 1 || st.DailyPnLPct != -2.0 {
		t.Fatalf("old day state = %+v", st)
	}

	// Trade closed at 00:00:01 counts toward the new day only.
	g.RecordOutcome(-1.0, mustTime(t, "2024-03-02T00:00:01Z"))
	st = g.Snapshot()
	if st.TradesToday != 1 {
		t.Fatalf("trades today after rollover = %d, want 1", st.TradesToday)
	}
	if st.DailyPnLPct != -1.0 {
		t.Fatalf("daily pnl after rollover = %v, want -1.0", st.DailyPnLPct)
	}
}

func TestGateRolloverClearsDailyDenials(t *testing.T) {
	limits := testLimits()
	limits.MaxTradesPerDay = 1
	now := mustTime(t, "2024-03-01T10:00:00Z")
	g := NewGate(limits, time.UTC, now)

	g.RecordOutcome(0.5, now)
	if d := g.CanTrade(now.Add(time.Minute)); d.Allowed {
		t.Fatal("expected max-trades denial")
	}
	if d := g.CanTrade(mustTime(t, "2024-03-02T00:00:01Z")); !d.Allowed {
		t.Fatalf("still denied after rollover: %v", d.Reason)
	}
}

func TestGatePauseSurvivesRollover(t *testing.T) {
	limits := testLimits()
	limits.PauseDuration = 4 * time.Hour
	now := mustTime(t, "2024-03-01T22:00:00Z")
	g := NewGate(limits, time.UTC, now)

	for i := 0; i < 3; i++ {
		g.RecordOutcome(-0.5, now.Add(time.Duration(i)*time.Minute))
	}

	// Pause ends 02:02 next day; rollover alone does not lift it.
	d := g.CanTrade(mustTime(t, "2024-03-02T01:00:00Z"))
	if d.Allowed {
		t.Fatal("pause should survive day rollover")
	}
	if d.Reason != ReasonConsecutiveLossPause {
		t.Fatalf("reason = %v, want %v", d.Reason, ReasonConsecutiveLossPause)
	}

	d = g.CanTrade(mustTime(t, "2024-03-02T03:00:00Z"))
	if !d.Allowed {
		t.Fatalf("denied after pause expiry: %v", d.Reason)
	}
}

func TestGateTradingWindow(t *testing.T) {
	limits := testLimits()
	limits.Window = Window{OpenHour: 9, CloseHour: 17}
	now := mustTime(t, "2024-03-01T08:00:00Z")
	g := NewGate(limits, time.UTC, now)

	d := g.CanTrade(now)
	if d.Allowed {
		t.Fatal("expected denial outside trading window")
	}
	if d.Reason != ReasonOutsideWindow {
		t.Fatalf("reason = %v, want %v", d.Reason, ReasonOutsideWindow)
	}
	if want := mustTime(t, "2024-03-01T09:00:00Z"); !d.ResumeAt.Equal(want) {
		t.Fatalf("resume at %v, want %v", d.ResumeAt, want)
	}

	if d := g.CanTrade(mustTime(t, "2024-03-01T12:00:00Z")); !d.Allowed {
		t.Fatalf("denied inside window: %v", d.Reason)
	}
	if d := g.CanTrade(mustTime(t, "2024-03-01T17:30:00Z")); d.Allowed {
		t.Fatal("expected denial after window close")
	}
}

func TestGateTimezoneRollover(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	limits := testLimits()
	limits.MaxTradesPerDay = 1
	// 23:30 New York on March 1 is 04:30 UTC March 2.
	now := mustTime(t, "2024-03-02T04:30:00Z")
	g := NewGate(limits, loc, now)

	g.RecordOutcome(0.5, now)
	if d := g.CanTrade(now.Add(10 * time.Minute)); d.Allowed {
		t.Fatal("expected max-trades denial before local midnight")
	}
	// 00:01 New York on March 2 is 05:01 UTC.
	if d := g.CanTrade(mustTime(t, "2024-03-02T05:01:00Z")); !d.Allowed {
		t.Fatalf("still denied after local midnight: %v", d.Reason)
	}
}
