package indicator

import "fmt"

// RSI computes the Relative Strength Index over the last `period` deltas
// of the close series (simple-average variant).
func RSI(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, fmt.Errorf("%w: RSI(%d) needs %d closes, have %d", ErrInsufficientHistory, period, period+1, len(closes))
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// StochRSI computes the Stochastic RSI %K and %D values. kPeriod and
// dPeriod are the smoothing windows (typically 3 and 3).
func StochRSI(closes []float64, period, kPeriod, dPeriod int) (k, d float64, err error) {
	// Need enough closes to produce a series of RSI values long enough
	// for the stochastic window plus both smoothing passes.
	need := 2*period + kPeriod + dPeriod + 1
	if len(closes) < need {
		return 0, 0, fmt.Errorf("%w: StochRSI(%d) needs %d closes, have %d", ErrInsufficientHistory, period, need, len(closes))
	}

	// Rolling RSI series over the tail of the input.
	count := period + kPeriod + dPeriod
	rsis := make([]float64, 0, count)
	for i := len(closes) - count; i <= len(closes); i++ {
		v, rerr := RSI(closes[:i], period)
		if rerr != nil {
			return 0, 0, rerr
		}
		rsis = append(rsis, v)
	}

	// Raw stochastic of RSI over `period`, then smooth K and D.
	stoch := func(upto int) float64 {
		lo, hi := rsis[upto-period], rsis[upto-period]
		for _, v := range rsis[upto-period : upto] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			return 50
		}
		return (rsis[upto-1] - lo) / (hi - lo) * 100
	}

	ks := make([]float64, 0, kPeriod+dPeriod)
	for i := len(rsis) - kPeriod - dPeriod + 1; i <= len(rsis); i++ {
		if i < period {
			continue
		}
		ks = append(ks, stoch(i))
	}
	if len(ks) < dPeriod {
		return 0, 0, fmt.Errorf("%w: StochRSI smoothing window", ErrInsufficientHistory)
	}

	mean := func(xs []float64) float64 {
		var sum float64
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	}

	// %K is the kPeriod SMA of the raw stochastic; %D is the dPeriod SMA
	// of the smoothed %K series.
	smoothed := make([]float64, 0, dPeriod+1)
	for i := kPeriod; i <= len(ks); i++ {
		smoothed = append(smoothed, mean(ks[i-kPeriod:i]))
	}
	if len(smoothed) < dPeriod {
		return 0, 0, fmt.Errorf("%w: StochRSI smoothing window", ErrInsufficientHistory)
	}
	k = smoothed[len(smoothed)-1]
	d = mean(smoothed[len(smoothed)-dPeriod:])
	return k, d, nil
}
