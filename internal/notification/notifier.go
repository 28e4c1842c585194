// Package notification delivers trading alerts (entries, exits, risk
// pauses, emergency stops) to external channels such as Telegram and
// generic webhooks.
//
// Delivery is best-effort: a failed send is logged and never blocks or
// fails the trading loop.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"apextrader/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log. Used in development
// and as the fallback when no external channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.log.Info("alert", "level", alert.Level, "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi fans an alert out to several backends. A failed backend is
// logged and skipped; the other backends still receive the alert.
type Multi struct {
	backends []Notifier
	log      *slog.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(log *slog.Logger, backends ...Notifier) *Multi {
	if log == nil {
		log = slog.Default()
	}
	return &Multi{backends: backends, log: log}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	for _, b := range m.backends {
		if err := b.Send(ctx, alert); err != nil {
			m.log.Warn("alert delivery failed", "title", alert.Title, "err", err)
		}
	}
	return nil
}

// TradeOpened builds the entry alert.
func TradeOpened(pos model.Position) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("Opened %s", pos.Symbol),
		Message: fmt.Sprintf("entry %.6g qty %.6g notional %.2f | TP %.6g SL %.6g | score %.1f",
			pos.EntryPrice, pos.Quantity, pos.Notional,
			pos.TakeProfit, pos.StopLoss, pos.Score.Composite),
	}
}

// TradeClosed builds the exit alert. Losses are warnings.
func TradeClosed(t model.Trade) Alert {
	level := AlertInfo
	if t.Outcome == model.OutcomeLoss {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("Closed %s (%s)", t.Symbol, t.ExitReason),
		Message: fmt.Sprintf("entry %.6g exit %.6g | P&L %+.2f%% (%+.2f) | held %s",
			t.EntryPrice, t.ExitPrice, t.PnLPct, t.PnLQuote,
			t.Duration().Round(time.Second)),
	}
}

// RiskPaused builds the risk-denial alert.
func RiskPaused(reason string, resumeAt time.Time) Alert {
	msg := "trading paused: " + reason
	if !resumeAt.IsZero() {
		msg += ", resumes " + resumeAt.UTC().Format(time.RFC3339)
	}
	return Alert{Level: AlertWarning, Title: "Risk pause", Message: msg}
}

// EmergencyStopped builds the emergency-stop alert.
func EmergencyStopped(detail string) Alert {
	return Alert{Level: AlertCritical, Title: "Emergency stop", Message: detail}
}
