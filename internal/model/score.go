package model

// Score is the composite opportunity score for one instrument, with the
// five component sub-scores that produced it. All values lie in [0, 10].
// A Score is immutable once computed.
type Score struct {
	Symbol     string  `json:"symbol"`
	Composite  float64 `json:"composite"`
	Volatility float64 `json:"volatility"`
	Volume     float64 `json:"volume"`
	Momentum   float64 `json:"momentum"`
	Technical  float64 `json:"technical"`
	Risk       float64 `json:"risk"`
}

// Candidate pairs a scored instrument with the snapshot it was scored
// from, as produced by a scan cycle.
type Candidate struct {
	Snapshot Snapshot `json:"snapshot"`
	Score    Score    `json:"score"`
}
