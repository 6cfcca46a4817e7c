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

// CandidateStore persists the candidate ledger in sqlite. Legs and greeks
// are stored as JSON columns; the ledger is read back whole-row.
type CandidateStore struct {
	db *DB
}

var _ domain.CandidateStore = (*CandidateStore)(nil)

// NewCandidateStore creates the store over an opened DB.
func NewCandidateStore(db *DB) *CandidateStore {
	return &CandidateStore{db: db}
}

const candidateColumns = `candidate_id, strategy, status, user_decision, created_at, updated_at,
	signal_spot, signal_iv_atm, signal_em_1sd, signal_zscore,
	legs, width, credit, max_risk, pop_pct, ev, ror, greeks, expiration`

func (s *CandidateStore) Get(ctx context.Context, candidateID string) (domain.TradeCandidateRecord, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE candidate_id = ?`, candidateID)
	rec, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TradeCandidateRecord{}, fmt.Errorf("candidate %s: %w", candidateID, domain.ErrNotFound)
	}
	return rec, err
}

func (s *CandidateStore) Put(ctx context.Context, rec domain.TradeCandidateRecord) error {
	legs, err := json.Marshal(rec.Legs)
	if err != nil {
		return fmt.Errorf("encode legs: %w", err)
	}
	greeks, err := json.Marshal(rec.Greeks)
	if err != nil {
		return fmt.Errorf("encode greeks: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(candidate_id) DO UPDATE SET
			status = excluded.status,
			user_decision = excluded.user_decision,
			updated_at = excluded.updated_at,
			legs = excluded.legs,
			width = excluded.width,
			credit = excluded.credit,
			max_risk = excluded.max_risk,
			pop_pct = excluded.pop_pct,
			ev = excluded.ev,
			ror = excluded.ror,
			greeks = excluded.greeks,
			expiration = excluded.expiration`,
		rec.CandidateID, string(rec.Strategy), string(rec.Status), rec.UserDecision,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
		rec.SignalSpot, rec.SignalIVATM, rec.SignalEM1SD, rec.SignalZScore,
		string(legs), rec.Width, rec.Credit, rec.MaxRisk,
		rec.PopPct, rec.EV, rec.RoR, string(greeks), rec.Expiration,
	)
	if err != nil {
		return fmt.Errorf("put candidate %s: %w", rec.CandidateID, err)
	}
	return nil
}

func (s *CandidateStore) List(ctx context.Context, f domain.CandidateFilter) ([]domain.TradeCandidateRecord, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Strategy != "" {
		query += ` AND strategy = ?`
		args = append(args, string(f.Strategy))
	}
	query += ` ORDER BY created_at DESC, candidate_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeCandidateRecord
	for rows.Next() {
		rec, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(r rowScanner) (domain.TradeCandidateRecord, error) {
	var (
		rec              domain.TradeCandidateRecord
		strategy, status string
		legsJSON, gkJSON string
		created, updated time.Time
	)
	err := r.Scan(&rec.CandidateID, &strategy, &status, &rec.UserDecision, &created, &updated,
		&rec.SignalSpot, &rec.SignalIVATM, &rec.SignalEM1SD, &rec.SignalZScore,
		&legsJSON, &rec.Width, &rec.Credit, &rec.MaxRisk,
		&rec.PopPct, &rec.EV, &rec.RoR, &gkJSON, &rec.Expiration)
	if err != nil {
		return rec, err
	}
	rec.Strategy = domain.StrategyID(strategy)
	rec.Status = domain.CandidateStatus(status)
	rec.CreatedAt = created
	rec.UpdatedAt = updated
	if err := json.Unmarshal([]byte(legsJSON), &rec.Legs); err != nil {
		return rec, fmt.Errorf("decode legs: %w", err)
	}
	if err := json.Unmarshal([]byte(gkJSON), &rec.Greeks); err != nil {
		return rec, fmt.Errorf("decode greeks: %w", err)
	}
	return rec, nil
}
