package indicator

import (
	"fmt"
	"math"

	"apextrader/internal/model"
)

// ATR computes the Average True Range over the last `period` true
// ranges. TR = max(H-L, |H-prevC|, |L-prevC|).
func ATR(bars []model.Bar, period int) (float64, error) {
	if len(bars) < period+1 {
		return 0, fmt.Errorf("%w: ATR(%d) needs %d bars, have %d", ErrInsufficientHistory, period, period+1, len(bars))
	}

	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		sum += math.Max(hl, math.Max(hc, lc))
	}
	return sum / float64(period), nil
}
