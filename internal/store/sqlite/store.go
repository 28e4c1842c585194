// Package sqlite persists the trade journal. Trades are append-only;
// aggregates are computed with SQL over the journal rather than kept as
// separate counters.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"apextrader/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT    NOT NULL,
	entry_price REAL    NOT NULL,
	exit_price  REAL    NOT NULL,
	quantity    REAL    NOT NULL,
	entered_at  INTEGER NOT NULL,
	exited_at   INTEGER NOT NULL,
	pnl_pct     REAL    NOT NULL,
	pnl_quote   REAL    NOT NULL,
	outcome     TEXT    NOT NULL,
	exit_reason TEXT    NOT NULL,
	score_json  TEXT    NOT NULL,
	trade_date  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(trade_date);
CREATE INDEX IF NOT EXISTS idx_trades_exited ON trades(exited_at);
`

// Store is the SQLite-backed trade journal. Dates are bucketed in the
// trading timezone so daily aggregates line up with the risk gate's day
// rollover.
type Store struct {
	db  *sql.DB
	loc *time.Location
	log *slog.Logger
}

// Open opens (and creates if needed) the journal at dbPath. loc is the
// trading timezone used for the per-day bucket (nil means UTC).
func Open(dbPath string, loc *time.Location, log *slog.Logger) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Info("trade journal opened", "path", dbPath)
	return &Store{db: db, loc: loc, log: log}, nil
}

// AppendTrade writes one closed trade and returns its row ID.
func (s *Store) AppendTrade(ctx context.Context, t model.Trade) (int64, error) {
	scoreJSON, err := json.Marshal(t.Score)
	if err != nil {
		return 0, fmt.Errorf("sqlite marshal score: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, entry_price, exit_price, quantity,
			entered_at, exited_at, pnl_pct, pnl_quote, outcome, exit_reason,
			score_json, trade_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Symbol, t.EntryPrice, t.ExitPrice, t.Quantity,
		t.EnteredAt.Unix(), t.ExitedAt.Unix(), t.PnLPct, t.PnLQuote,
		string(t.Outcome), string(t.ExitReason), string(scoreJSON),
		t.ExitedAt.In(s.loc).Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("sqlite insert trade: %w", err)
	}
	return res.LastInsertId()
}

// RecentTrades returns up to limit trades, newest first.
func (s *Store) RecentTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, entry_price, exit_price, quantity,
			entered_at, exited_at, pnl_pct, pnl_quote, outcome, exit_reason, score_json
		FROM trades
		ORDER BY exited_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var (
			t                   model.Trade
			enteredAt, exitedAt int64
			outcome, reason     string
			scoreJSON           string
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&enteredAt, &exitedAt, &t.PnLPct, &t.PnLQuote, &outcome, &reason, &scoreJSON); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.EnteredAt = time.Unix(enteredAt, 0).UTC()
		t.ExitedAt = time.Unix(exitedAt, 0).UTC()
		t.Outcome = model.Outcome(outcome)
		t.ExitReason = model.ExitReason(reason)
		if err := json.Unmarshal([]byte(scoreJSON), &t.Score); err != nil {
			s.log.Warn("corrupt score json, skipping field", "trade", t.ID, "err", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// DailyStats aggregates the given trading day (YYYY-MM-DD).
func (s *Store) DailyStats(ctx context.Context, date string) (model.DailyStats, error) {
	st := model.DailyStats{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'WIN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'LOSS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl_pct), 0),
			COALESCE(SUM(pnl_quote), 0),
			COALESCE(MAX(pnl_pct), 0),
			COALESCE(MIN(pnl_pct), 0)
		FROM trades WHERE trade_date = ?
	`, date).Scan(&st.TotalTrades, &st.WinningTrades, &st.LosingTrades,
		&st.TotalPnLPct, &st.TotalPnLQuote, &st.BestTradePct, &st.WorstTradePct)
	if err != nil {
		return st, fmt.Errorf("sqlite daily stats: %w", err)
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
	}
	return st, nil
}

// DailyHistory returns per-day aggregates for the most recent days that
// have trades, newest first.
func (s *Store) DailyHistory(ctx context.Context, days int) ([]model.DailyStats, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_date, COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'WIN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'LOSS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl_pct), 0),
			COALESCE(SUM(pnl_quote), 0),
			COALESCE(MAX(pnl_pct), 0),
			COALESCE(MIN(pnl_pct), 0)
		FROM trades
		GROUP BY trade_date
		ORDER BY trade_date DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, fmt.Errorf("sqlite daily history: %w", err)
	}
	defer rows.Close()

	var out []model.DailyStats
	for rows.Next() {
		var st model.DailyStats
		if err := rows.Scan(&st.Date, &st.TotalTrades, &st.WinningTrades, &st.LosingTrades,
			&st.TotalPnLPct, &st.TotalPnLQuote, &st.BestTradePct, &st.WorstTradePct); err != nil {
			return nil, fmt.Errorf("sqlite scan daily history: %w", err)
		}
		if st.TotalTrades > 0 {
			st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// AllTimeStats aggregates the whole journal.
func (s *Store) AllTimeStats(ctx context.Context) (model.AllTimeStats, error) {
	var (
		st                  model.AllTimeStats
		firstUnix, lastUnix sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'WIN' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'LOSS' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl_quote), 0),
			COALESCE(AVG(pnl_pct), 0),
			COALESCE(MAX(pnl_pct), 0),
			COALESCE(MIN(pnl_pct), 0),
			MIN(exited_at), MAX(exited_at)
		FROM trades
	`).Scan(&st.TotalTrades, &st.WinningTrades, &st.LosingTrades,
		&st.TotalPnLQuote, &st.AvgPnLPct, &st.BestTradePct, &st.WorstTradePct,
		&firstUnix, &lastUnix)
	if err != nil {
		return st, fmt.Errorf("sqlite all-time stats: %w", err)
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
	}
	if firstUnix.Valid {
		st.FirstTradeAt = time.Unix(firstUnix.Int64, 0).UTC()
	}
	if lastUnix.Valid {
		st.LastTradeAt = time.Unix(lastUnix.Int64, 0).UTC()
	}
	return st, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	return s.db.Close()
}
