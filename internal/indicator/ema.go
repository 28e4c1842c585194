package indicator

import "fmt"

// EMA computes the Exponential Moving Average of the series, seeded with
// the SMA of the first `period` values (standard 2/(p+1) smoothing).
func EMA(closes []float64, period int) (float64, error) {
	if len(closes) < period {
		return 0, fmt.Errorf("%w: EMA(%d) needs %d closes, have %d", ErrInsufficientHistory, period, period, len(closes))
	}

	var seed float64
	for _, c := range closes[:period] {
		seed += c
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for _, c := range closes[period:] {
		ema = c*k + ema*(1-k)
	}
	return ema, nil
}

// emaSeries returns the full EMA series aligned to the input, with the
// first value used as seed (the ewm(adjust=false) convention). Used by
// MACD, which needs the signal line over the MACD series.
func emaSeries(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SMA computes the simple moving average of the last `period` values.
func SMA(closes []float64, period int) (float64, error) {
	if len(closes) < period {
		return 0, fmt.Errorf("%w: SMA(%d) needs %d closes, have %d", ErrInsufficientHistory, period, period, len(closes))
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), nil
}
