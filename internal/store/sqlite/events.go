package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spreadpilot/internal/domain"
)

// EventStore is the append-only event log in sqlite. There is no update or
// delete path on purpose.
type EventStore struct {
	db *DB
}

var _ domain.EventStore = (*EventStore)(nil)

// NewEventStore creates the store over an opened DB.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, ev domain.TradeEvent) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO trade_events (id, type, at, candidate_id, trade_id, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.At.UTC(), ev.CandidateID, ev.TradeID, ev.Note)
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

func (s *EventStore) List(ctx context.Context, limit int, types ...domain.EventType) ([]domain.TradeEvent, error) {
	query := `SELECT id, type, at, candidate_id, trade_id, note FROM trade_events`
	var args []any
	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` WHERE type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeEvent
	for rows.Next() {
		var (
			ev  domain.TradeEvent
			typ string
			at  time.Time
		)
		if err := rows.Scan(&ev.ID, &typ, &at, &ev.CandidateID, &ev.TradeID, &ev.Note); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(typ)
		ev.At = at
		out = append(out, ev)
	}
	return out, rows.Err()
}
