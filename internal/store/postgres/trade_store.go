package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spreadpilot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Sequential
// trade ids come from a dedicated sequence.
type TradeStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeStore = (*TradeStore)(nil)

// NewTradeStore creates a TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `trade_id, candidate_id, strategy, legs, status, rollover,
	filled_credit, quantity, fees_estimate, max_profit, max_loss, break_even,
	realized_pnl, current_mark, unrealized_pnl, opened_at, closed_at, closed_reason`

func scanTradeRow(row pgx.Row) (domain.TradeRecord, error) {
	var rec domain.TradeRecord
	err := row.Scan(
		&rec.TradeID, &rec.CandidateID, &rec.Strategy, &rec.Legs,
		&rec.Status, &rec.Rollover,
		&rec.FilledCredit, &rec.Quantity, &rec.FeesEstimate,
		&rec.MaxProfit, &rec.MaxLoss, &rec.BreakEven,
		&rec.RealizedPnL, &rec.CurrentMark, &rec.UnrealizedPnL,
		&rec.OpenedAt, &rec.ClosedAt, &rec.ClosedReason,
	)
	return rec, err
}

func (s *TradeStore) Get(ctx context.Context, tradeID string) (domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE trade_id = $1`, tradeID)
	rec, err := scanTradeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeRecord{}, fmt.Errorf("postgres: trade %s: %w", tradeID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: get trade: %w", err)
	}
	return rec, nil
}

func (s *TradeStore) Put(ctx context.Context, rec domain.TradeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (`+tradeSelectCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18)
		ON CONFLICT (trade_id) DO UPDATE SET
			status = EXCLUDED.status,
			realized_pnl = EXCLUDED.realized_pnl,
			current_mark = EXCLUDED.current_mark,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			closed_at = EXCLUDED.closed_at,
			closed_reason = EXCLUDED.closed_reason`,
		rec.TradeID, rec.CandidateID, rec.Strategy, rec.Legs,
		rec.Status, rec.Rollover,
		rec.FilledCredit, rec.Quantity, rec.FeesEstimate,
		rec.MaxProfit, rec.MaxLoss, rec.BreakEven,
		rec.RealizedPnL, rec.CurrentMark, rec.UnrealizedPnL,
		rec.OpenedAt, rec.ClosedAt, rec.ClosedReason,
	)
	if err != nil {
		return fmt.Errorf("postgres: put trade %s: %w", rec.TradeID, err)
	}
	return nil
}

func (s *TradeStore) List(ctx context.Context, f domain.TradeFilter) ([]domain.TradeRecord, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE 1=1`
	var args []any
	argIdx := 1
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.Strategy != "" {
		query += fmt.Sprintf(" AND strategy = $%d", argIdx)
		args = append(args, f.Strategy)
		argIdx++
	}
	query += " ORDER BY opened_at DESC, trade_id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *TradeStore) NextTradeID(ctx context.Context) (string, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('trade_id_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("postgres: next trade id: %w", err)
	}
	return fmt.Sprintf("T%05d", n), nil
}
