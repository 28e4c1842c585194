package scoring

import "apextrader/internal/indicator"

// Internal weights of the technical sub-score components.
const (
	wRSI   = 0.20
	wStoch = 0.20
	wMACD  = 0.25
	wBB    = 0.15
	wTrend = 0.20
)

// technicalScore combines RSI, StochRSI, MACD, Bollinger position, and
// EMA trend into one [0,10] sub-score. The individual curves favor
// oversold reversals and bullish momentum.
func technicalScore(price float64, set *indicator.Set) float64 {
	return rsiScore(set.RSI)*wRSI +
		stochScore(set.StochK, set.StochD)*wStoch +
		macdScore(set)*wMACD +
		bbScore(set.BBPosition)*wBB +
		trendScore(price, set)*wTrend
}

// rsiScore uses reversal logic: oversold is a buy signal, overbought a
// warning.
func rsiScore(rsi float64) float64 {
	switch {
	case rsi < 30:
		return 9
	case rsi < 40:
		return 7
	case rsi > 70:
		return 2
	case rsi > 60:
		return 4
	default:
		return 5
	}
}

// stochScore rewards a bullish K/D crossover in oversold territory.
func stochScore(k, d float64) float64 {
	switch {
	case k < 20 && k > d:
		return 10
	case k < 20:
		return 8
	case k > 80:
		return 2
	default:
		return 5
	}
}

func macdScore(set *indicator.Set) float64 {
	switch {
	case set.MACDCrossover:
		return 10
	case set.MACDHistogram > 0:
		return 7
	case set.MACDHistogram < 0:
		return 3
	default:
		return 5
	}
}

// bbScore favors mean reversion from the lower band.
func bbScore(position float64) float64 {
	switch {
	case position < 0.1:
		return 10
	case position < 0.3:
		return 8
	case position > 0.9:
		return 2
	default:
		return 5
	}
}

// trendScore uses the EMA50/EMA200 relation. EMA200 may be absent
// (zero) on shorter windows, which reads as neutral.
func trendScore(price float64, set *indicator.Set) float64 {
	if set.EMA200 == 0 {
		return 5
	}
	switch {
	case set.EMA50 > set.EMA200 && price > set.EMA50:
		return 8
	case set.EMA50 < set.EMA200:
		return 3
	default:
		return 5
	}
}
