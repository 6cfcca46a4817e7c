package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

// TradeStore persists the trade ledger in sqlite. Sequential trade ids come
// from an autoincrement sequence table so T00001-style ids survive restarts.
type TradeStore struct {
	db *DB
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates the store over an opened DB.
func NewTradeStore(db *DB) *TradeStore {
	return &TradeStore{db: db}
}

const tradeColumns = `trade_id, candidate_id, strategy, legs, status, rollover,
	filled_credit, quantity, fees_estimate, max_profit, max_loss, break_even,
	realized_pnl, current_mark, unrealized_pnl, opened_at, closed_at, closed_reason`

func (s *TradeStore) Get(ctx context.Context, tradeID string) (domain.TradeRecord, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TradeRecord{}, fmt.Errorf("trade %s: %w", tradeID, domain.ErrNotFound)
	}
	return rec, err
}

func (s *TradeStore) Put(ctx context.Context, rec domain.TradeRecord) error {
	legs, err := json.Marshal(rec.Legs)
	if err != nil {
		return fmt.Errorf("encode legs: %w", err)
	}
	var closedAt *time.Time
	if rec.ClosedAt != nil {
		t := rec.ClosedAt.UTC()
		closedAt = &t
	}
	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			status = excluded.status,
			realized_pnl = excluded.realized_pnl,
			current_mark = excluded.current_mark,
			unrealized_pnl = excluded.unrealized_pnl,
			closed_at = excluded.closed_at,
			closed_reason = excluded.closed_reason`,
		rec.TradeID, rec.CandidateID, string(rec.Strategy), string(legs),
		string(rec.Status), string(rec.Rollover),
		rec.FilledCredit, rec.Quantity, rec.FeesEstimate,
		rec.MaxProfit, rec.MaxLoss, rec.BreakEven,
		rec.RealizedPnL, rec.CurrentMark, rec.UnrealizedPnL,
		rec.OpenedAt.UTC(), closedAt, rec.ClosedReason,
	)
	if err != nil {
		return fmt.Errorf("put trade %s: %w", rec.TradeID, err)
	}
	return nil
}

func (s *TradeStore) List(ctx context.Context, f domain.TradeFilter) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Strategy != "" {
		query += ` AND strategy = ?`
		args = append(args, string(f.Strategy))
	}
	query += ` ORDER BY opened_at DESC, trade_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *TradeStore) NextTradeID(ctx context.Context) (string, error) {
	res, err := s.db.db.ExecContext(ctx, `INSERT INTO trade_seq DEFAULT VALUES`)
	if err != nil {
		return "", fmt.Errorf("next trade id: %w", err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("next trade id: %w", err)
	}
	return fmt.Sprintf("T%05d", n), nil
}

func scanTrade(r rowScanner) (domain.TradeRecord, error) {
	var (
		rec                        domain.TradeRecord
		strategy, status, rollover string
		legsJSON                   string
		opened                     time.Time
		closed                     sql.NullTime
	)
	err := r.Scan(&rec.TradeID, &rec.CandidateID, &strategy, &legsJSON, &status, &rollover,
		&rec.FilledCredit, &rec.Quantity, &rec.FeesEstimate,
		&rec.MaxProfit, &rec.MaxLoss, &rec.BreakEven,
		&rec.RealizedPnL, &rec.CurrentMark, &rec.UnrealizedPnL,
		&opened, &closed, &rec.ClosedReason)
	if err != nil {
		return rec, err
	}
	rec.Strategy = domain.StrategyID(strategy)
	rec.Status = domain.TradeStatus(status)
	rec.Rollover = domain.RolloverPolicy(rollover)
	rec.OpenedAt = opened
	if closed.Valid {
		t := closed.Time
		rec.ClosedAt = &t
	}
	if err := json.Unmarshal([]byte(legsJSON), &rec.Legs); err != nil {
		return rec, fmt.Errorf("decode legs: %w", err)
	}
	return rec, nil
}
