package indicator

import (
	"fmt"
	"math"
)

// BollingerResult carries the band levels plus the relative position of
// the latest close inside the bands (0 = lower band, 1 = upper band) and
// the band width as a fraction of the middle band.
type BollingerResult struct {
	Upper    float64
	Middle   float64
	Lower    float64
	Position float64
	Width    float64
}

// Bollinger computes Bollinger Bands over the last `period` closes with
// the given standard-deviation multiplier.
func Bollinger(closes []float64, period int, stdDev float64) (BollingerResult, error) {
	if len(closes) < period {
		return BollingerResult{}, fmt.Errorf("%w: Bollinger(%d) needs %d closes, have %d", ErrInsufficientHistory, period, period, len(closes))
	}

	window := closes[len(closes)-period:]
	var sum float64
	for _, c := range window {
		sum += c
	}
	mean := sum / float64(period)

	var varsum float64
	for _, c := range window {
		d := c - mean
		varsum += d * d
	}
	sd := math.Sqrt(varsum / float64(period))

	res := BollingerResult{
		Upper:  mean + sd*stdDev,
		Middle: mean,
		Lower:  mean - sd*stdDev,
	}

	price := closes[len(closes)-1]
	if width := res.Upper - res.Lower; width > 0 {
		res.Position = (price - res.Lower) / width
	} else {
		res.Position = 0.5
	}
	if mean > 0 {
		res.Width = (res.Upper - res.Lower) / mean
	}
	return res, nil
}
