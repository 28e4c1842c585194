package sizing

import "sync"

// Streak adjustment bounds for the adaptive profile.
const (
	winIncrement  = 0.02 // fraction added per consecutive win
	lossDecrement = 0.03 // fraction removed per consecutive loss
	maxFraction   = 0.40
	minFraction   = 0.05

	// MinNotional is the exchange minimum order size in quote currency.
	MinNotional = 10.0
)

// State is the sizer's streak snapshot, exposed through the status API.
type State struct {
	Profile      string  `json:"profile"`
	WinStreak    int     `json:"win_streak"`
	LossStreak   int     `json:"loss_streak"`
	LastFraction float64 `json:"last_fraction"`
}

// Sizer computes trade notionals. The engine's loop goroutine calls
// Notional and RecordOutcome while the status API reads Snapshot from
// its own goroutines, so streak state is guarded by a mutex.
type Sizer struct {
	profile Profile

	mu           sync.RWMutex
	winStreak    int
	lossStreak   int
	lastFraction float64
}

// NewSizer creates a Sizer for the given profile.
func NewSizer(p Profile) *Sizer {
	return &Sizer{profile: p, lastFraction: p.BaseFraction}
}

// Profile returns the active strategy profile.
func (s *Sizer) Profile() Profile { return s.profile }

// Notional computes the quote-currency amount to commit to the next
// trade. Returns ok=false when no trade should be placed: the open
// position count is at the profile maximum, or the computed amount is
// under the exchange minimum.
//
// dailyPnLPct is the day's realized P&L (negative when losing); the
// fraction tapers linearly as the remaining daily-loss budget shrinks.
func (s *Sizer) Notional(balance float64, openPositions int, dailyPnLPct float64) (float64, bool) {
	if openPositions >= s.profile.MaxPositions {
		return 0, false
	}
	if balance <= 0 {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fraction := s.fraction()

	// Linear taper toward zero as realized losses approach the daily
	// limit. A positive day leaves the fraction untouched.
	if limit := s.profile.DailyLossLimitPct; limit > 0 && dailyPnLPct < 0 {
		remaining := limit + dailyPnLPct // dailyPnLPct is negative
		if remaining <= 0 {
			return 0, false
		}
		fraction *= remaining / limit
	}

	notional := balance * fraction
	if notional > balance {
		notional = balance
	}
	if notional < MinNotional {
		return 0, false
	}

	s.lastFraction = fraction
	return notional, true
}

// fraction returns the balance fraction for the next trade. Non-adaptive
// profiles always use the base fraction; the adaptive profile shifts it
// with the current streak, bounded to [minFraction, maxFraction].
// Callers hold s.mu.
func (s *Sizer) fraction() float64 {
	if !s.profile.Adaptive {
		return s.profile.BaseFraction
	}
	f := s.profile.BaseFraction +
		winIncrement*float64(s.winStreak) -
		lossDecrement*float64(s.lossStreak)
	if f > maxFraction {
		f = maxFraction
	}
	if f < minFraction {
		f = minFraction
	}
	return f
}

// RecordOutcome updates the streak after a closed trade. Wins extend the
// win streak, losses the loss streak; a breakeven trade clears both.
func (s *Sizer) RecordOutcome(pnlPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case pnlPct > 0:
		s.winStreak++
		s.lossStreak = 0
	case pnlPct < 0:
		s.lossStreak++
		s.winStreak = 0
	default:
		s.winStreak = 0
		s.lossStreak = 0
	}
}

// Snapshot returns the current sizing state. Safe to call from any
// goroutine.
func (s *Sizer) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Profile:      s.profile.Name,
		WinStreak:    s.winStreak,
		LossStreak:   s.lossStreak,
		LastFraction: s.lastFraction,
	}
}
