// Package engine runs the trading loop: scan for a candidate while
// idle, enter on a qualifying score, monitor the open position until an
// exit condition fires, record the outcome, repeat.
//
// The loop is a single goroutine with well-defined suspension points
// (scan responses, order fills, monitor ticks). An emergency-stop
// signal is checked at each of them and forces the position closed,
// then halts new entries until explicitly cleared. Status reads from
// the HTTP layer go through a snapshot guarded by a mutex.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"apextrader/internal/metrics"
	"apextrader/internal/model"
	"apextrader/internal/notification"
	"apextrader/internal/ringbuf"
	"apextrader/internal/risk"
	"apextrader/internal/scanner"
	"apextrader/internal/sizing"
)

// tickHistory bounds the recent-price trail kept for the open position,
// about six minutes at the default 3s monitor interval.
const tickHistory = 120

// CandidateSource yields the best entry candidate per scan cycle.
type CandidateSource interface {
	Best(ctx context.Context) (*model.Candidate, *scanner.Result, error)
}

// StatusPublisher pushes engine status and scan results to subscribers
// (Redis, WebSocket hub). Implementations must not block the loop.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, st Status)
	PublishScan(ctx context.Context, res *scanner.Result)
}

// Config controls loop timing and exit rules.
type Config struct {
	ScanInterval     time.Duration // pause between scans while idle, default 60s
	MonitorInterval  time.Duration // open-position price poll, default 3s
	MaxTradeDuration time.Duration // time-based forced exit, default 30m
	CallTimeout      time.Duration // per exchange call, default 10s
	TrailingStopPct  float64       // retrace from high water that exits, 0 disables
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 60 * time.Second
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 3 * time.Second
	}
	if c.MaxTradeDuration <= 0 {
		c.MaxTradeDuration = 30 * time.Minute
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 10 * time.Second
	}
	return c
}

// PositionStatus is the open position enriched with live prices.
type PositionStatus struct {
	model.Position
	CurrentPrice float64        `json:"current_price"`
	PnLPct       float64        `json:"pnl_pct"`
	PnLQuote     float64        `json:"pnl_quote"`
	RecentPrices []ringbuf.Tick `json:"recent_prices,omitempty"`
}

// ScanSummary condenses the last scan for the status API.
type ScanSummary struct {
	Scanned   int           `json:"scanned"`
	Skipped   int           `json:"skipped"`
	Best      *model.Score  `json:"best,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Status is the engine snapshot served by the status API and pushed to
// subscribers.
type Status struct {
	State         State           `json:"state"`
	EmergencyStop bool            `json:"emergency_stop"`
	Balance       float64         `json:"balance"`
	Position      *PositionStatus `json:"position,omitempty"`
	Risk          risk.State      `json:"risk"`
	Sizing        sizing.State    `json:"sizing"`
	LastScan      *ScanSummary    `json:"last_scan,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Engine owns the position lifecycle. All trading state is mutated only
// inside Run's goroutine; the mutex exists for Status readers.
type Engine struct {
	cfg   Config
	exch  model.Exchange
	scan  CandidateSource
	sizer *sizing.Sizer
	gate  *risk.Gate
	store model.TradeStore
	notif notification.Notifier
	met   *metrics.Metrics
	pub   StatusPublisher
	clock Clock
	log   *slog.Logger

	emergency atomic.Bool

	mu           sync.RWMutex
	state        State
	pos          *model.Position
	ticks        *ringbuf.Ring
	lastPrice    float64
	balance      float64
	lastScan     *ScanSummary
	lastScanFull *scanner.Result
}

// PublisherList fans status updates out to several publishers.
type PublisherList []StatusPublisher

func (l PublisherList) PublishStatus(ctx context.Context, st Status) {
	for _, p := range l {
		p.PublishStatus(ctx, st)
	}
}

func (l PublisherList) PublishScan(ctx context.Context, res *scanner.Result) {
	for _, p := range l {
		p.PublishScan(ctx, res)
	}
}

// New creates an Engine. notif, pub, and clock may be nil (log-only
// alerts, no publishing, wall clock).
func New(cfg Config, exch model.Exchange, scan CandidateSource, sizer *sizing.Sizer,
	gate *risk.Gate, store model.TradeStore, notif notification.Notifier,
	met *metrics.Metrics, pub StatusPublisher, clock Clock, log *slog.Logger) *Engine {

	if notif == nil {
		notif = notification.NewLogNotifier(log)
	}
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:   cfg.withDefaults(),
		exch:  exch,
		scan:  scan,
		sizer: sizer,
		gate:  gate,
		store: store,
		notif: notif,
		met:   met,
		pub:   pub,
		clock: clock,
		log:   log,
		state: StateIdle,
		ticks: ringbuf.New(tickHistory),
	}
}

// Run executes the loop until ctx is cancelled. An open position is
// closed before returning.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("engine starting",
		"scan_interval", e.cfg.ScanInterval,
		"monitor_interval", e.cfg.MonitorInterval,
		"max_trade_duration", e.cfg.MaxTradeDuration,
		"profile", e.sizer.Profile().Name)

	for {
		if ctx.Err() != nil {
			e.shutdown()
			return
		}

		var sleep time.Duration
		switch {
		case e.emergency.Load():
			sleep = e.stepEmergency(ctx)
		default:
			switch e.currentState() {
			case StateIdle:
				sleep = e.stepIdle(ctx)
			case StateOpen:
				sleep = e.stepOpen(ctx)
			case StatePaused:
				sleep = e.stepPaused(ctx)
			default:
				sleep = e.cfg.MonitorInterval
			}
		}

		e.clock.Sleep(ctx, sleep)
	}
}

// stepIdle runs one scan cycle and enters on a qualifying candidate.
func (e *Engine) stepIdle(ctx context.Context) time.Duration {
	if d := e.gate.CanTrade(e.clock.Now()); !d.Allowed {
		e.pause(ctx, d)
		return e.cfg.MonitorInterval
	}

	best, res, err := e.scan.Best(ctx)
	if err != nil {
		e.log.Error("scan failed", "err", err)
		return e.cfg.ScanInterval
	}
	e.recordScan(ctx, res)

	if best == nil {
		return e.cfg.ScanInterval
	}

	balance, err := e.fetchBalance(ctx)
	if err != nil {
		e.log.Error("balance fetch failed", "err", err)
		return e.cfg.ScanInterval
	}

	notional, ok := e.sizer.Notional(balance, 0, e.gate.Snapshot().DailyPnLPct)
	if !ok {
		e.log.Info("sizer declined trade",
			"symbol", best.Score.Symbol, "balance", balance)
		return e.cfg.ScanInterval
	}

	if err := e.enter(ctx, best, notional); err != nil {
		e.log.Error("entry failed", "symbol", best.Score.Symbol, "err", err)
		return e.cfg.ScanInterval
	}
	return e.cfg.MonitorInterval
}

// enter submits the entry order and, on fill, transitions to OPEN.
// A failed or timed-out order returns the engine to IDLE; the candidate
// is not retried until the next scan.
func (e *Engine) enter(ctx context.Context, cand *model.Candidate, notional float64) error {
	e.setState(StateEntering)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	symbol := cand.Score.Symbol
	fill, err := e.exch.MarketOrder(callCtx, symbol, model.SideBuy, notional, 0)
	if err != nil {
		if e.met != nil {
			e.met.OrdersFailed.Inc()
		}
		e.setState(StateIdle)
		return fmt.Errorf("market buy %s: %w", symbol, err)
	}

	profile := e.sizer.Profile()
	pos := &model.Position{
		Symbol:     fill.Symbol,
		EntryPrice: fill.Price,
		Quantity:   fill.Quantity,
		Notional:   fill.Price * fill.Quantity,
		EnteredAt:  e.clock.Now(),
		TakeProfit: fill.Price * (1 + profile.TakeProfitPct/100),
		StopLoss:   fill.Price * (1 - profile.StopLossPct/100),
		Score:      cand.Score,
	}
	if e.cfg.TrailingStopPct > 0 {
		pos.HighWater = fill.Price
	}

	e.mu.Lock()
	e.pos = pos
	e.lastPrice = fill.Price
	e.ticks.Reset()
	e.ticks.Push(ringbuf.Tick{At: pos.EnteredAt, Price: fill.Price})
	e.mu.Unlock()
	e.setState(StateOpen)

	e.log.Info("position opened",
		"symbol", pos.Symbol, "entry", pos.EntryPrice, "qty", pos.Quantity,
		"take_profit", pos.TakeProfit, "stop_loss", pos.StopLoss,
		"score", pos.Score.Composite)
	e.notify(ctx, notification.TradeOpened(*pos))
	e.publishStatus(ctx)
	return nil
}

// stepOpen polls the price once and exits when a condition fires.
// Monitoring never re-scores other instruments while a position is open.
func (e *Engine) stepOpen(ctx context.Context) time.Duration {
	pos := e.position()
	if pos == nil {
		e.setState(StateIdle)
		return 0
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	price, err := e.exch.CurrentPrice(callCtx, pos.Symbol)
	cancel()
	if err != nil {
		e.log.Warn("price poll failed", "symbol", pos.Symbol, "err", err)
		return e.cfg.MonitorInterval
	}

	e.mu.Lock()
	e.lastPrice = price
	e.ticks.Push(ringbuf.Tick{At: e.clock.Now(), Price: price})
	if e.pos != nil && e.pos.HighWater > 0 && price > e.pos.HighWater {
		e.pos.HighWater = price
	}
	hw := 0.0
	if e.pos != nil {
		hw = e.pos.HighWater
	}
	e.mu.Unlock()

	if e.met != nil {
		e.met.OpenPnLPct.Set(pos.PnLPct(price))
	}

	reason := exitReason(pos, price, hw, e.cfg, e.clock.Now())
	if reason == "" {
		e.publishStatus(ctx)
		return e.cfg.MonitorInterval
	}

	if err := e.exit(ctx, reason); err != nil {
		e.log.Error("exit failed, retrying next tick",
			"symbol", pos.Symbol, "reason", reason, "err", err)
		return e.cfg.MonitorInterval
	}
	return 0
}

// exitReason evaluates the exit conditions against the latest price.
func exitReason(pos *model.Position, price, highWater float64, cfg Config, now time.Time) model.ExitReason {
	switch {
	case price >= pos.TakeProfit:
		return model.ExitTakeProfit
	case price <= pos.StopLoss:
		return model.ExitStopLoss
	case cfg.TrailingStopPct > 0 && highWater > pos.EntryPrice &&
		price <= highWater*(1-cfg.TrailingStopPct/100):
		return model.ExitStopLoss
	case now.Sub(pos.EnteredAt) >= cfg.MaxTradeDuration:
		return model.ExitMaxDuration
	}
	return ""
}

// exit closes the position at market and records the outcome. On order
// failure the position stays OPEN and the caller retries.
func (e *Engine) exit(ctx context.Context, reason model.ExitReason) error {
	pos := e.position()
	if pos == nil {
		return nil
	}
	e.setState(StateExiting)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	fill, err := e.exch.MarketOrder(callCtx, pos.Symbol, model.SideSell, 0, pos.Quantity)
	if err != nil {
		if e.met != nil {
			e.met.OrdersFailed.Inc()
		}
		e.setState(StateOpen)
		return fmt.Errorf("market sell %s: %w", pos.Symbol, err)
	}

	now := e.clock.Now()
	pnlPct := pos.PnLPct(fill.Price)
	trade := model.Trade{
		Symbol:     pos.Symbol,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill.Price,
		Quantity:   pos.Quantity,
		EnteredAt:  pos.EnteredAt,
		ExitedAt:   now,
		PnLPct:     pnlPct,
		PnLQuote:   pos.PnLQuote(fill.Price),
		Outcome:    model.OutcomeOf(pnlPct),
		ExitReason: reason,
		Score:      pos.Score,
	}

	if e.store != nil {
		id, err := e.store.AppendTrade(ctx, trade)
		if err != nil {
			e.log.Error("trade journal write failed", "symbol", trade.Symbol, "err", err)
		} else {
			trade.ID = id
		}
	}

	e.gate.RecordOutcome(pnlPct, now)
	e.sizer.RecordOutcome(pnlPct)

	if e.met != nil {
		e.met.TradesTotal.WithLabelValues(string(trade.Outcome)).Inc()
		e.met.TradePnLPct.Observe(pnlPct)
		e.met.DailyPnLPct.Set(e.gate.Snapshot().DailyPnLPct)
		e.met.OpenPnLPct.Set(0)
	}

	e.mu.Lock()
	e.pos = nil
	e.mu.Unlock()
	e.setState(StateIdle)

	e.log.Info("position closed",
		"symbol", trade.Symbol, "exit", trade.ExitPrice, "reason", reason,
		"pnl_pct", trade.PnLPct, "outcome", trade.Outcome,
		"held", trade.Duration())
	e.notify(ctx, notification.TradeClosed(trade))
	e.publishStatus(ctx)
	return nil
}

// stepPaused waits for the gate to re-open.
func (e *Engine) stepPaused(ctx context.Context) time.Duration {
	d := e.gate.CanTrade(e.clock.Now())
	if d.Allowed {
		e.log.Info("risk pause lifted")
		e.setState(StateIdle)
		e.publishStatus(ctx)
		return 0
	}
	return e.cfg.MonitorInterval
}

// stepEmergency closes any open position and holds the loop until the
// stop is cleared.
func (e *Engine) stepEmergency(ctx context.Context) time.Duration {
	if e.position() != nil {
		if err := e.exit(ctx, model.ExitEmergency); err != nil {
			e.log.Error("emergency close failed, retrying", "err", err)
			return e.cfg.MonitorInterval
		}
	}
	if e.currentState() != StatePaused {
		e.setState(StatePaused)
		e.publishStatus(ctx)
	}
	return e.cfg.MonitorInterval
}

// pause transitions to PAUSED on a gate denial.
func (e *Engine) pause(ctx context.Context, d risk.Decision) {
	if e.currentState() == StatePaused {
		return
	}
	e.setState(StatePaused)
	if e.met != nil {
		e.met.RiskDenials.WithLabelValues(string(d.Reason)).Inc()
	}
	e.log.Warn("trading paused", "reason", d.Reason, "resume_at", d.ResumeAt)
	e.notify(ctx, notification.RiskPaused(string(d.Reason), d.ResumeAt))
	e.publishStatus(ctx)
}

// shutdown closes an open position before the process exits. The run
// context is already cancelled, so the close order gets its own bound.
func (e *Engine) shutdown() {
	if e.position() == nil {
		e.log.Info("engine stopped")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CallTimeout)
	defer cancel()
	if err := e.exit(ctx, model.ExitShutdown); err != nil {
		e.log.Error("shutdown close failed, position left open", "err", err)
	}
	e.log.Info("engine stopped")
}

// EmergencyStop forces the position closed at the next suspension point
// and blocks new entries until ClearEmergencyStop.
func (e *Engine) EmergencyStop(detail string) {
	if e.emergency.CompareAndSwap(false, true) {
		e.log.Warn("emergency stop set", "detail", detail)
		e.notify(context.Background(), notification.EmergencyStopped(detail))
	}
}

// ClearEmergencyStop re-enables trading. A position the emergency close
// could not sell resumes monitoring instead of being abandoned; the
// loop must never hold more than one position.
func (e *Engine) ClearEmergencyStop() {
	if e.emergency.CompareAndSwap(true, false) {
		e.log.Info("emergency stop cleared")
		if e.position() != nil {
			e.setState(StateOpen)
		} else {
			e.setState(StateIdle)
		}
	}
}

// Stopped reports whether the emergency stop is set.
func (e *Engine) Stopped() bool { return e.emergency.Load() }

// Status returns a point-in-time snapshot for the API layer.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		State:         e.state,
		EmergencyStop: e.emergency.Load(),
		Balance:       e.balance,
		Risk:          e.gate.Snapshot(),
		Sizing:        e.sizer.Snapshot(),
		LastScan:      e.lastScan,
		UpdatedAt:     e.clock.Now(),
	}
	if e.pos != nil {
		st.Position = &PositionStatus{
			Position:     *e.pos,
			CurrentPrice: e.lastPrice,
			PnLPct:       e.pos.PnLPct(e.lastPrice),
			PnLQuote:     e.pos.PnLQuote(e.lastPrice),
			RecentPrices: e.ticks.Items(),
		}
	}
	return st
}

// LastScan returns the full result of the most recent scan, or nil
// before the first one completes.
func (e *Engine) LastScan() *scanner.Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastScanFull
}

func (e *Engine) fetchBalance(ctx context.Context) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	balance, err := e.exch.Balance(callCtx)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	e.balance = balance
	e.mu.Unlock()
	if e.met != nil {
		e.met.Balance.Set(balance)
	}
	return balance, nil
}

func (e *Engine) recordScan(ctx context.Context, res *scanner.Result) {
	if res == nil {
		return
	}
	sum := &ScanSummary{
		Scanned:   res.Scanned,
		Skipped:   res.Skipped,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if len(res.Candidates) > 0 {
		best := res.Candidates[0].Score
		sum.Best = &best
	}
	e.mu.Lock()
	e.lastScan = sum
	e.lastScanFull = res
	e.mu.Unlock()

	if e.met != nil {
		e.met.ScansTotal.Inc()
		e.met.ScanDuration.Observe(res.Duration.Seconds())
		e.met.InstrumentsScanned.Set(float64(res.Scanned))
		e.met.InstrumentsSkipped.Set(float64(res.Skipped))
		if sum.Best != nil {
			e.met.BestScore.Set(sum.Best.Composite)
		}
	}
	if e.pub != nil {
		e.pub.PublishScan(ctx, res)
	}
}

func (e *Engine) currentState() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	if e.met != nil {
		e.met.EngineState.Set(s.gaugeValue())
	}
}

func (e *Engine) position() *model.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *Engine) publishStatus(ctx context.Context) {
	if e.pub != nil {
		e.pub.PublishStatus(ctx, e.Status())
	}
}

func (e *Engine) notify(ctx context.Context, a notification.Alert) {
	if err := e.notif.Send(ctx, a); err != nil {
		e.log.Warn("notification failed", "title", a.Title, "err", err)
	}
}
