package indicator

import (
	"fmt"
	"math"
)

// Volatility computes the standard deviation of simple returns over the
// last `period` closes, expressed as a percentage.
func Volatility(closes []float64, period int) (float64, error) {
	if len(closes) < 2 {
		return 0, fmt.Errorf("%w: volatility needs at least 2 closes", ErrInsufficientHistory)
	}
	if period > len(closes) {
		period = len(closes)
	}

	window := closes[len(closes)-period:]
	rets := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		rets = append(rets, (window[i]-window[i-1])/window[i-1])
	}
	if len(rets) == 0 {
		return 0, nil
	}

	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	var varsum float64
	for _, r := range rets {
		d := r - mean
		varsum += d * d
	}
	return math.Sqrt(varsum/float64(len(rets))) * 100, nil
}

// Momentum returns the percent price change per lookback window, keyed
// by window length in bars. Windows longer than the series are omitted
// rather than reported as zero.
func Momentum(closes []float64, windows []int) map[int]float64 {
	out := make(map[int]float64, len(windows))
	for _, w := range windows {
		if len(closes) <= w {
			continue
		}
		old := closes[len(closes)-1-w]
		if old == 0 {
			continue
		}
		out[w] = (closes[len(closes)-1] - old) / old * 100
	}
	return out
}
