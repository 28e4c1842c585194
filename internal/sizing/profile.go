// Package sizing computes the notional to commit to the next trade from
// the wallet balance, the selected strategy profile, and the recent
// win/loss streak.
package sizing

import (
	"fmt"
	"strings"
)

// Profile is a named bundle of risk and sizing parameters. The set of
// profiles is closed: unknown names are rejected at startup.
type Profile struct {
	Name              string  `json:"name"`
	BaseFraction      float64 `json:"base_fraction"`        // fraction of balance per trade
	MaxPositions      int     `json:"max_positions"`        // max concurrent open positions
	StopLossPct       float64 `json:"stop_loss_pct"`        // e.g. 2.5 = -2.5%
	TakeProfitPct     float64 `json:"take_profit_pct"`      // e.g. 4.0 = +4.0%
	DailyLossLimitPct float64 `json:"daily_loss_limit_pct"` // daily realized-loss cap
	MaxTradesPerDay   int     `json:"max_trades_per_day"`
	Adaptive          bool    `json:"adaptive"` // streak-based fraction adjustment
}

const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileAggressive   = "aggressive"
	ProfileAdaptive     = "adaptive"
)

var profiles = map[string]Profile{
	ProfileConservative: {
		Name:              ProfileConservative,
		BaseFraction:      0.10,
		MaxPositions:      1,
		StopLossPct:       1.5,
		TakeProfitPct:     2.5,
		DailyLossLimitPct: 2.0,
		MaxTradesPerDay:   5,
	},
	ProfileBalanced: {
		Name:              ProfileBalanced,
		BaseFraction:      0.15,
		MaxPositions:      1,
		StopLossPct:       2.5,
		TakeProfitPct:     4.0,
		DailyLossLimitPct: 3.0,
		MaxTradesPerDay:   10,
	},
	ProfileAggressive: {
		Name:              ProfileAggressive,
		BaseFraction:      0.30,
		MaxPositions:      2,
		StopLossPct:       4.0,
		TakeProfitPct:     6.0,
		DailyLossLimitPct: 5.0,
		MaxTradesPerDay:   20,
	},
	ProfileAdaptive: {
		Name:              ProfileAdaptive,
		BaseFraction:      0.15,
		MaxPositions:      1,
		StopLossPct:       2.5,
		TakeProfitPct:     4.0,
		DailyLossLimitPct: 3.0,
		MaxTradesPerDay:   15,
		Adaptive:          true,
	},
}

// ProfileByName resolves a profile from its name (case-insensitive).
// Unknown names are an error: callers must treat this as fatal at
// startup, never default silently.
func ProfileByName(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("sizing: unknown strategy profile %q (valid: %s, %s, %s, %s)",
			name, ProfileConservative, ProfileBalanced, ProfileAggressive, ProfileAdaptive)
	}
	return p, nil
}

// ProfileNames returns the valid profile names.
func ProfileNames() []string {
	return []string{ProfileConservative, ProfileBalanced, ProfileAggressive, ProfileAdaptive}
}
