// Package indicator computes technical indicators over a fixed window of
// OHLCV bars (most-recent-last). All computations are pure functions of
// the input series.
//
// Insufficient history is an error (ErrInsufficientHistory), never a
// fabricated neutral value: callers must treat an instrument with
// incomplete data as ineligible rather than score it.
package indicator

import (
	"errors"
	"fmt"

	"apextrader/internal/model"
)

// ErrInsufficientHistory is returned when the bar window is shorter than
// an indicator's lookback.
var ErrInsufficientHistory = errors.New("indicator: insufficient history")

// Config holds the indicator periods. Zero values fall back to defaults.
type Config struct {
	RSIPeriod  int // default 14
	MACDFast   int // default 12
	MACDSlow   int // default 26
	MACDSignal int // default 9
	BBPeriod   int // default 20
	BBStdDev   float64 // default 2.0
	ATRPeriod  int // default 14
	VolPeriod  int // default 20, rolling volatility window
	MinBars    int // default 60, overall eligibility floor
}

// DefaultConfig returns the standard periods.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBPeriod:   20,
		BBStdDev:   2.0,
		ATRPeriod:  14,
		VolPeriod:  20,
		MinBars:    60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = d.RSIPeriod
	}
	if c.MACDFast <= 0 {
		c.MACDFast = d.MACDFast
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = d.MACDSlow
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = d.MACDSignal
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = d.BBPeriod
	}
	if c.BBStdDev <= 0 {
		c.BBStdDev = d.BBStdDev
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.VolPeriod <= 0 {
		c.VolPeriod = d.VolPeriod
	}
	if c.MinBars <= 0 {
		c.MinBars = d.MinBars
	}
	return c
}

// MomentumWindows are the lookbacks (in bars) for the multi-window
// momentum calculation: 15m / 1h / 4h on 1-minute bars.
var MomentumWindows = []int{15, 60, 240}

// Set is the full indicator output for one instrument's bar window.
type Set struct {
	RSI float64 `json:"rsi"`

	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`

	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`
	MACDCrossover bool    `json:"macd_crossover"` // bullish cross on the latest bar

	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	BBPosition float64 `json:"bb_position"` // 0 = lower band, 1 = upper band
	BBWidth    float64 `json:"bb_width"`

	EMA50  float64 `json:"ema_50"`
	EMA200 float64 `json:"ema_200"` // 0 when the window is shorter than 200 bars

	ATR        float64 `json:"atr"`
	Volatility float64 `json:"volatility"` // stddev of returns over VolPeriod, percent

	// Momentum holds percent price change per lookback window, keyed by
	// window length in bars. Only windows the series covers are present.
	Momentum map[int]float64 `json:"momentum"`

	VolumeAvg float64 `json:"volume_avg"` // rolling mean volume over VolPeriod
}

// Compute calculates the full indicator set from a bar window.
// Returns ErrInsufficientHistory when the window is shorter than
// cfg.MinBars or than the longest required lookback.
func Compute(bars []model.Bar, cfg Config) (*Set, error) {
	cfg = cfg.withDefaults()

	if len(bars) < cfg.MinBars {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientHistory, len(bars), cfg.MinBars)
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	rsi, err := RSI(closes, cfg.RSIPeriod)
	if err != nil {
		return nil, err
	}
	k, d, err := StochRSI(closes, cfg.RSIPeriod, 3, 3)
	if err != nil {
		return nil, err
	}
	macd, err := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if err != nil {
		return nil, err
	}
	bb, err := Bollinger(closes, cfg.BBPeriod, cfg.BBStdDev)
	if err != nil {
		return nil, err
	}
	atr, err := ATR(bars, cfg.ATRPeriod)
	if err != nil {
		return nil, err
	}
	vol, err := Volatility(closes, cfg.VolPeriod)
	if err != nil {
		return nil, err
	}

	set := &Set{
		RSI:           rsi,
		StochK:        k,
		StochD:        d,
		MACD:          macd.Line,
		MACDSignal:    macd.Signal,
		MACDHistogram: macd.Histogram,
		MACDCrossover: macd.BullishCross,
		BBUpper:       bb.Upper,
		BBMiddle:      bb.Middle,
		BBLower:       bb.Lower,
		BBPosition:    bb.Position,
		BBWidth:       bb.Width,
		ATR:           atr,
		Volatility:    vol,
		Momentum:      Momentum(closes, MomentumWindows),
		VolumeAvg:     volumeAvg(bars, cfg.VolPeriod),
	}

	// EMA50 is required for the trend sub-score; EMA200 is best-effort
	// on the usual 300-bar window and reported as 0 when absent.
	set.EMA50, err = EMA(closes, 50)
	if err != nil {
		return nil, err
	}
	if ema200, err := EMA(closes, 200); err == nil {
		set.EMA200 = ema200
	}

	return set, nil
}

func volumeAvg(bars []model.Bar, period int) float64 {
	if period > len(bars) {
		period = len(bars)
	}
	if period == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return sum / float64(period)
}
