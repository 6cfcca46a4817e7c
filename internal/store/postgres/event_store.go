package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"spreadpilot/internal/domain"
)

// EventStore implements the append-only domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

var _ domain.EventStore = (*EventStore)(nil)

// NewEventStore creates an EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) Append(ctx context.Context, ev domain.TradeEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_events (id, type, at, candidate_id, trade_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.Type, ev.At, ev.CandidateID, ev.TradeID, ev.Note)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *EventStore) List(ctx context.Context, limit int, types ...domain.EventType) ([]domain.TradeEvent, error) {
	query := `SELECT id, type, at, candidate_id, trade_id, note FROM trade_events`
	var args []any
	argIdx := 1
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, t)
			argIdx++
		}
		query += ` WHERE type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY at DESC, id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeEvent
	for rows.Next() {
		var ev domain.TradeEvent
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.At, &ev.CandidateID, &ev.TradeID, &ev.Note); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
