// Package metrics exposes Prometheus instrumentation for the trading
// bot: scan cycle stats, trade outcomes, risk denials, and account
// gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	ScansTotal         prometheus.Counter
	ScanDuration       prometheus.Histogram
	InstrumentsScanned prometheus.Gauge
	InstrumentsSkipped prometheus.Gauge
	BestScore          prometheus.Gauge

	TradesTotal  *prometheus.CounterVec // labels: outcome
	TradePnLPct  prometheus.Histogram
	OrdersFailed prometheus.Counter
	RiskDenials  *prometheus.CounterVec // labels: reason

	EngineState prometheus.Gauge // 0=idle 1=entering 2=open 3=exiting 4=paused
	Balance     prometheus.Gauge
	DailyPnLPct prometheus.Gauge
	OpenPnLPct  prometheus.Gauge
}

// New registers and returns all bot metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apex_scans_total",
			Help: "Total scan cycles completed",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apex_scan_duration_seconds",
			Help:    "Scan cycle latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		InstrumentsScanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_scan_instruments_scored",
			Help: "Instruments successfully scored in the last scan",
		}),
		InstrumentsSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_scan_instruments_skipped",
			Help: "Instruments skipped in the last scan (fetch failure or insufficient data)",
		}),
		BestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_scan_best_score",
			Help: "Top composite score of the last scan",
		}),

		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_trades_total",
			Help: "Closed trades by outcome",
		}, []string{"outcome"}),
		TradePnLPct: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "apex_trade_pnl_pct",
			Help:    "Realized P&L percentage per closed trade",
			Buckets: []float64{-10, -5, -2.5, -1, 0, 1, 2.5, 5, 10},
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apex_orders_failed_total",
			Help: "Order placements that errored or timed out",
		}),
		RiskDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apex_risk_denials_total",
			Help: "Entry denials by risk gate reason",
		}, []string{"reason"}),

		EngineState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_engine_state",
			Help: "Engine state (0=idle, 1=entering, 2=open, 3=exiting, 4=paused)",
		}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_balance_quote",
			Help: "Free quote-currency balance at last check",
		}),
		DailyPnLPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_daily_pnl_pct",
			Help: "Realized P&L percentage for the current trading day",
		}),
		OpenPnLPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "apex_open_pnl_pct",
			Help: "Unrealized P&L percentage of the open position (0 when flat)",
		}),
	}

	reg.MustRegister(
		m.ScansTotal,
		m.ScanDuration,
		m.InstrumentsScanned,
		m.InstrumentsSkipped,
		m.BestScore,
		m.TradesTotal,
		m.TradePnLPct,
		m.OrdersFailed,
		m.RiskDenials,
		m.EngineState,
		m.Balance,
		m.DailyPnLPct,
		m.OpenPnLPct,
	)

	return m
}

// NewMetrics registers all bot metrics on the default registry.
func NewMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
