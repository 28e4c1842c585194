// Package model defines the core data types shared across the bot:
// market bars and snapshots, opportunity scores, positions, and closed
// trade records, plus the port interfaces that decouple the engine from
// the exchange and the trade store.
package model

import "time"

// Bar is a single OHLCV bar for one instrument.
type Bar struct {
	TS     time.Time `json:"ts"` // bar open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"` // base-asset volume
}

// Stats24h carries the exchange's rolling 24h ticker statistics.
type Stats24h struct {
	PriceChangePct float64 `json:"price_change_pct"`
	Volume         float64 `json:"volume"`       // base-asset volume
	QuoteVolume    float64 `json:"quote_volume"` // quote-asset (USDT) volume
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Trades         int64   `json:"trades"`
}

// Snapshot is one instrument's market view for a single scan cycle.
// Snapshots are ephemeral: the scanner rebuilds them every cycle and
// nothing holds onto them across cycles.
type Snapshot struct {
	Symbol string   `json:"symbol"`
	Price  float64  `json:"price"` // latest close
	Bars   []Bar    `json:"-"`     // most-recent-last, fixed window
	Stats  Stats24h `json:"stats"`
}

// Closes returns the close-price series of the snapshot's bars.
func (s *Snapshot) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
