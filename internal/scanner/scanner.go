// Package scanner fetches market snapshots for the top instruments,
// scores each one, and returns a ranked candidate list.
//
// Partial failure is the normal case at scale: a snapshot fetch or an
// incomputable indicator set skips that instrument and the scan
// continues. Only a failure to fetch the instrument universe aborts a
// scan.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"apextrader/internal/indicator"
	"apextrader/internal/model"
	"apextrader/internal/scoring"
)

// Config controls the scan universe and eligibility threshold.
type Config struct {
	TopN          int     // universe size, e.g. top 100 by quote volume
	MinScore      float64 // entry eligibility threshold on the composite score
	IndicatorConf indicator.Config
}

// Result is the outcome of one scan cycle.
type Result struct {
	Candidates []model.Candidate `json:"candidates"` // ranked, best first
	Scanned    int               `json:"scanned"`    // instruments successfully scored
	Skipped    int               `json:"skipped"`    // instruments dropped (fetch failure or insufficient data)
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}

// Scanner ranks trading opportunities across an instrument universe.
type Scanner struct {
	md     model.MarketData
	scorer *scoring.Scorer
	cfg    Config
	log    *slog.Logger
}

// New creates a Scanner.
func New(md model.MarketData, scorer *scoring.Scorer, cfg Config, log *slog.Logger) *Scanner {
	if cfg.TopN <= 0 {
		cfg.TopN = 100
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{md: md, scorer: scorer, cfg: cfg, log: log}
}

// Scan fetches and scores the instrument universe. Per-instrument
// failures are logged and skipped; an empty universe is an error.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	symbols, err := s.md.TopInstruments(ctx, s.cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("scanner: fetch universe: %w", err)
	}
	if len(symbols) == 0 {
		return nil, errors.New("scanner: empty instrument universe")
	}

	res := &Result{StartedAt: start}
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand, err := s.scanOne(ctx, symbol)
		if err != nil {
			res.Skipped++
			if errors.Is(err, indicator.ErrInsufficientHistory) {
				s.log.Debug("skipping instrument, insufficient history", "symbol", symbol)
			} else {
				s.log.Warn("skipping instrument", "symbol", symbol, "err", err)
			}
			continue
		}
		res.Scanned++
		res.Candidates = append(res.Candidates, *cand)
	}

	rank(res.Candidates)
	res.Duration = time.Since(start)
	s.log.Info("scan complete",
		"scanned", res.Scanned, "skipped", res.Skipped, "duration", res.Duration)
	return res, nil
}

// Best runs a scan and returns the highest-ranked candidate at or above
// the minimum score, or nil when no instrument qualifies.
func (s *Scanner) Best(ctx context.Context) (*model.Candidate, *Result, error) {
	res, err := s.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Candidates) == 0 {
		return nil, res, nil
	}
	best := res.Candidates[0]
	if best.Score.Composite < s.cfg.MinScore {
		s.log.Info("best score below threshold",
			"symbol", best.Score.Symbol, "score", best.Score.Composite, "threshold", s.cfg.MinScore)
		return nil, res, nil
	}
	return &best, res, nil
}

func (s *Scanner) scanOne(ctx context.Context, symbol string) (*model.Candidate, error) {
	snap, err := s.md.Snapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	set, err := indicator.Compute(snap.Bars, s.cfg.IndicatorConf)
	if err != nil {
		return nil, err
	}

	return &model.Candidate{
		Snapshot: *snap,
		Score:    s.scorer.Score(snap, set),
	}, nil
}

// rank sorts candidates descending by composite score, ties broken by
// the higher volume component.
func rank(cands []model.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].Score, cands[j].Score
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		return a.Volume > b.Volume
	})
}
