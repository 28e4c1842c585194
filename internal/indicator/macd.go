package indicator

import "fmt"

// MACDResult carries the MACD line, signal line, histogram, and whether
// the latest bar produced a bullish crossover (histogram moving from
// negative to positive).
type MACDResult struct {
	Line         float64
	Signal       float64
	Histogram    float64
	BullishCross bool
}

// MACD computes Moving Average Convergence Divergence with the given
// fast/slow/signal periods (typically 12/26/9).
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if len(closes) < slow {
		return MACDResult{}, fmt.Errorf("%w: MACD needs %d closes, have %d", ErrInsufficientHistory, slow, len(closes))
	}

	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	sig := emaSeries(macd, signal)

	last := len(closes) - 1
	res := MACDResult{
		Line:      macd[last],
		Signal:    sig[last],
		Histogram: macd[last] - sig[last],
	}
	if last >= 1 {
		prevHist := macd[last-1] - sig[last-1]
		res.BullishCross = prevHist < 0 && res.Histogram > 0
	}
	return res, nil
}
