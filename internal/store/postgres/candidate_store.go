package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spreadpilot/internal/domain"
)

// CandidateStore implements domain.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *pgxpool.Pool
}

var _ domain.CandidateStore = (*CandidateStore)(nil)

// NewCandidateStore creates a CandidateStore backed by the given pool.
func NewCandidateStore(pool *pgxpool.Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

const candidateSelectCols = `candidate_id, strategy, status, user_decision, created_at, updated_at,
	signal_spot, signal_iv_atm, signal_em_1sd, signal_zscore,
	legs, width, credit, max_risk, pop_pct, ev, ror, greeks, expiration`

func scanCandidateRow(row pgx.Row) (domain.TradeCandidateRecord, error) {
	var rec domain.TradeCandidateRecord
	err := row.Scan(
		&rec.CandidateID, &rec.Strategy, &rec.Status, &rec.UserDecision,
		&rec.CreatedAt, &rec.UpdatedAt,
		&rec.SignalSpot, &rec.SignalIVATM, &rec.SignalEM1SD, &rec.SignalZScore,
		&rec.Legs, &rec.Width, &rec.Credit, &rec.MaxRisk,
		&rec.PopPct, &rec.EV, &rec.RoR, &rec.Greeks, &rec.Expiration,
	)
	return rec, err
}

func (s *CandidateStore) Get(ctx context.Context, candidateID string) (domain.TradeCandidateRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+candidateSelectCols+` FROM candidates WHERE candidate_id = $1`, candidateID)
	rec, err := scanCandidateRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeCandidateRecord{}, fmt.Errorf("postgres: candidate %s: %w", candidateID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TradeCandidateRecord{}, fmt.Errorf("postgres: get candidate: %w", err)
	}
	return rec, nil
}

func (s *CandidateStore) Put(ctx context.Context, rec domain.TradeCandidateRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO candidates (`+candidateSelectCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (candidate_id) DO UPDATE SET
			status = EXCLUDED.status,
			user_decision = EXCLUDED.user_decision,
			updated_at = EXCLUDED.updated_at,
			legs = EXCLUDED.legs,
			width = EXCLUDED.width,
			credit = EXCLUDED.credit,
			max_risk = EXCLUDED.max_risk,
			pop_pct = EXCLUDED.pop_pct,
			ev = EXCLUDED.ev,
			ror = EXCLUDED.ror,
			greeks = EXCLUDED.greeks,
			expiration = EXCLUDED.expiration`,
		rec.CandidateID, rec.Strategy, rec.Status, rec.UserDecision,
		rec.CreatedAt, rec.UpdatedAt,
		rec.SignalSpot, rec.SignalIVATM, rec.SignalEM1SD, rec.SignalZScore,
		rec.Legs, rec.Width, rec.Credit, rec.MaxRisk,
		rec.PopPct, rec.EV, rec.RoR, rec.Greeks, rec.Expiration,
	)
	if err != nil {
		return fmt.Errorf("postgres: put candidate %s: %w", rec.CandidateID, err)
	}
	return nil
}

func (s *CandidateStore) List(ctx context.Context, f domain.CandidateFilter) ([]domain.TradeCandidateRecord, error) {
	query := `SELECT ` + candidateSelectCols + ` FROM candidates WHERE 1=1`
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
	query += " ORDER BY created_at DESC, candidate_id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeCandidateRecord
	for rows.Next() {
		rec, err := scanCandidateRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan candidate: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
