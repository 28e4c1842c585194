// Package risk implements the stateful guard consulted before every
// entry decision: daily loss cap, daily trade cap, consecutive-loss
// pause, and an optional trading window.
//
// Daily counters reset at local midnight in the configured trading
// timezone. Open positions are not the gate's concern: a position
// spanning midnight keeps its original entry context.
package risk

import (
	"sync"
	"time"
)

// Reason identifies why the gate denied trading.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonDailyLossLimit       Reason = "daily-loss-limit-reached"
	ReasonConsecutiveLossPause Reason = "consecutive-loss-pause-active"
	ReasonMaxTradesReached     Reason = "max-trades-today-reached"
	ReasonOutsideWindow        Reason = "outside-trading-window"
)

// Decision is the gate's answer to "may I open a position now?".
type Decision struct {
	Allowed  bool      `json:"allowed"`
	Reason   Reason    `json:"reason,omitempty"`
	ResumeAt time.Time `json:"resume_at,omitempty"` // earliest time the denial can clear
}

// Window is an optional daily trading window in the gate's timezone.
// Zero value means "always open".
type Window struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

func (w Window) enabled() bool {
	return w.OpenHour != 0 || w.OpenMinute != 0 || w.CloseHour != 0 || w.CloseMinute != 0
}

func (w Window) contains(t time.Time) bool {
	hm := t.Hour()*60 + t.Minute()
	return hm >= w.OpenHour*60+w.OpenMinute && hm < w.CloseHour*60+w.CloseMinute
}

// Limits defines the configurable risk thresholds.
type Limits struct {
	DailyLossLimitPct    float64       // realized daily loss cap, e.g. 3.0 = -3%
	MaxTradesPerDay      int           // trade count cap per day
	MaxConsecutiveLosses int           // losses before a pause is triggered
	PauseDuration        time.Duration // how long the consecutive-loss pause lasts
	Window               Window        // optional trading window
}

// State is the gate's externally visible snapshot.
type State struct {
	TradesToday       int       `json:"trades_today"`
	DailyPnLPct       float64   `json:"daily_pnl_pct"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	PausedUntil       time.Time `json:"paused_until,omitempty"`
	DayOpen           time.Time `json:"day_open"`
	LastDenial        Reason    `json:"last_denial,omitempty"`
}

// Gate is the risk guard. Outcome recording happens strictly inside the
// engine's single loop; the mutex protects concurrent Snapshot reads
// from the status API.
type Gate struct {
	mu     sync.RWMutex
	limits Limits
	loc    *time.Location

	dayOpen      time.Time
	tradesToday  int
	dailyPnLPct  float64
	consecLosses int
	pausedUntil  time.Time
	lastDenial   Reason
}

// NewGate creates a Gate anchored at the day containing `now` in the
// given timezone (nil means UTC).
func NewGate(limits Limits, loc *time.Location, now time.Time) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{
		limits:  limits,
		loc:     loc,
		dayOpen: dayOpen(loc, now),
	}
}

// CanTrade reports whether a new entry is allowed at `now`. Denials set
// the last-denial reason so operators can distinguish "no opportunities"
// from "risk-limited".
func (g *Gate) CanTrade(now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked(now)
	local := now.In(g.loc)

	if g.limits.Window.enabled() && !g.limits.Window.contains(local) {
		return g.denyLocked(ReasonOutsideWindow, nextWindowOpen(g.loc, g.limits.Window, now))
	}
	if !g.pausedUntil.IsZero() && now.Before(g.pausedUntil) {
		return g.denyLocked(ReasonConsecutiveLossPause, g.pausedUntil)
	}
	if g.limits.DailyLossLimitPct > 0 && g.dailyPnLPct <= -g.limits.DailyLossLimitPct {
		return g.denyLocked(ReasonDailyLossLimit, nextDayOpen(g.loc, now))
	}
	if g.limits.MaxTradesPerDay > 0 && g.tradesToday >= g.limits.MaxTradesPerDay {
		return g.denyLocked(ReasonMaxTradesReached, nextDayOpen(g.loc, now))
	}

	g.lastDenial = ReasonNone
	return Decision{Allowed: true}
}

func (g *Gate) denyLocked(reason Reason, resumeAt time.Time) Decision {
	g.lastDenial = reason
	return Decision{Allowed: false, Reason: reason, ResumeAt: resumeAt}
}

// RecordOutcome registers a closed trade: updates daily P&L and trade
// count, extends or clears the consecutive-loss counter, and triggers a
// pause when the loss threshold is hit. Only realized losses count; any
// non-losing trade resets the counter.
func (g *Gate) RecordOutcome(pnlPct float64, closedAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked(closedAt)

	g.tradesToday++
	g.dailyPnLPct += pnlPct

	if pnlPct < 0 {
		g.consecLosses++
		if g.limits.MaxConsecutiveLosses > 0 && g.consecLosses >= g.limits.MaxConsecutiveLosses {
			g.pausedUntil = closedAt.Add(g.limits.PauseDuration)
		}
	} else {
		g.consecLosses = 0
	}
}

// rolloverLocked clears daily counters when `now` has crossed into a new
// trading day. The consecutive-loss counter survives rollover only while
// its pause is active; an expired pause clears with the new day.
func (g *Gate) rolloverLocked(now time.Time) {
	if sameTradingDay(g.loc, g.dayOpen, now) {
		return
	}
	g.dayOpen = dayOpen(g.loc, now)
	g.tradesToday = 0
	g.dailyPnLPct = 0
	if !g.pausedUntil.IsZero() && now.After(g.pausedUntil) {
		g.pausedUntil = time.Time{}
		g.consecLosses = 0
	}
	g.lastDenial = ReasonNone
}

// Snapshot returns the current risk state.
func (g *Gate) Snapshot() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return State{
		TradesToday:       g.tradesToday,
		DailyPnLPct:       g.dailyPnLPct,
		ConsecutiveLosses: g.consecLosses,
		PausedUntil:       g.pausedUntil,
		DayOpen:           g.dayOpen,
		LastDenial:        g.lastDenial,
	}
}

// Location returns the gate's trading timezone.
func (g *Gate) Location() *time.Location { return g.loc }

// nextWindowOpen returns the next time the trading window opens at or
// after `now`.
func nextWindowOpen(loc *time.Location, w Window, now time.Time) time.Time {
	local := now.In(loc)
	open := time.Date(local.Year(), local.Month(), local.Day(), w.OpenHour, w.OpenMinute, 0, 0, loc)
	if !local.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// String implements fmt.Stringer for log output.
func (r Reason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}
