// Package scoring turns an instrument's indicator set and market
// snapshot into a composite opportunity score in [0, 10].
//
// The scorer is a pure function: the same inputs always produce the same
// score. Each component score is normalized to [0, 10] by a documented
// curve, then combined by the configured weights (which must sum to 1).
// Instruments with incomputable indicators are never scored; callers
// must exclude them from ranking entirely.
package scoring

import (
	"fmt"

	"apextrader/internal/indicator"
	"apextrader/internal/model"
)

// Weights configures the five component weights. They must sum to 1.0
// within a 0.01 tolerance; Validate enforces this at startup.
type Weights struct {
	Volatility float64
	Volume     float64
	Momentum   float64
	Technical  float64
	Risk       float64
}

// DefaultWeights returns the standard component mix.
func DefaultWeights() Weights {
	return Weights{
		Volatility: 0.30,
		Volume:     0.25,
		Momentum:   0.25,
		Technical:  0.15,
		Risk:       0.05,
	}
}

// Validate checks that the weights sum to 1.0 (±0.01).
func (w Weights) Validate() error {
	sum := w.Volatility + w.Volume + w.Momentum + w.Technical + w.Risk
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("scoring: weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// majorSymbols get a risk-score bonus: deep books, established markets.
var majorSymbols = map[string]bool{
	"BTCUSDT": true,
	"ETHUSDT": true,
	"BNBUSDT": true,
	"SOLUSDT": true,
	"XRPUSDT": true,
	"ADAUSDT": true,
}

// Scorer computes composite scores with a fixed weight configuration.
type Scorer struct {
	weights Weights
}

// New creates a Scorer. Returns an error if the weights are invalid.
func New(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Score computes the composite score for one instrument from its
// indicator set and snapshot.
func (s *Scorer) Score(snap *model.Snapshot, set *indicator.Set) model.Score {
	sc := model.Score{
		Symbol:     snap.Symbol,
		Volatility: volatilityScore(set.Volatility),
		Volume:     volumeScore(snap.Stats.QuoteVolume),
		Momentum:   momentumScore(set.Momentum),
		Technical:  technicalScore(snap.Price, set),
		Risk:       riskScore(snap.Symbol, snap.Stats.QuoteVolume),
	}
	sc.Composite = clamp(
		sc.Volatility*s.weights.Volatility+
			sc.Volume*s.weights.Volume+
			sc.Momentum*s.weights.Momentum+
			sc.Technical*s.weights.Technical+
			sc.Risk*s.weights.Risk,
		0, 10)
	return sc
}

// volatilityScore maps rolling volatility (% stddev of returns) onto
// [0,10]: more movement scores higher, stepwise up to a cap.
//
//	>=3%  -> 10   >=2% -> 8   >=1% -> 6   >=0.5% -> 4   else -> 2
func volatilityScore(vol float64) float64 {
	switch {
	case vol >= 3:
		return 10
	case vol >= 2:
		return 8
	case vol >= 1:
		return 6
	case vol >= 0.5:
		return 4
	default:
		return 2
	}
}

// volumeScore maps 24h quote volume (USDT) onto [0,10] stepwise:
//
//	>=100M -> 10   >=50M -> 8   >=10M -> 6   >=1M -> 4   else -> 2
func volumeScore(quoteVolume float64) float64 {
	switch {
	case quoteVolume >= 100_000_000:
		return 10
	case quoteVolume >= 50_000_000:
		return 8
	case quoteVolume >= 10_000_000:
		return 6
	case quoteVolume >= 1_000_000:
		return 4
	default:
		return 2
	}
}

// momentumScore scores multi-window momentum: all windows positive with
// average above 1% is a strong uptrend (10); all positive 8; at least
// half positive 6; average below -1% a strong downtrend (3); else 4.
func momentumScore(momentum map[int]float64) float64 {
	if len(momentum) == 0 {
		return 4
	}
	positive := 0
	var avg float64
	for _, v := range momentum {
		if v > 0 {
			positive++
		}
		avg += v
	}
	avg /= float64(len(momentum))

	switch {
	case positive == len(momentum) && avg > 1:
		return 10
	case positive == len(momentum):
		return 8
	case positive*2 >= len(momentum):
		return 6
	case avg < -1:
		return 3
	default:
		return 4
	}
}

// riskScore rates how safe the instrument is to touch: base 5, bumped
// for liquidity and for major symbols, docked for thin books.
func riskScore(symbol string, quoteVolume float64) float64 {
	score := 5.0
	switch {
	case quoteVolume >= 50_000_000:
		score += 3
	case quoteVolume >= 10_000_000:
		score += 2
	case quoteVolume >= 1_000_000:
		score += 1
	default:
		score -= 2
	}
	if majorSymbols[symbol] {
		score += 2
	}
	return clamp(score, 0, 10)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
