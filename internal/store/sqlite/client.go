// Package sqlite is the embedded persistence backend: candidate, trade,
// event and alert-state stores over a single database file. It is the
// default for single-node deployments; postgres covers shared deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle plus the logger shared by the per-entity stores.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and runs migrations.
// Pass ":memory:" for an ephemeral database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver is not safe across connections for :memory: and
	// in-file writes contend anyway, so serialize on one connection.
	db.SetMaxOpenConns(1)

	d := &DB{db: db, logger: logger.With(slog.String("component", "sqlite"))}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	d.logger.Info("sqlite ready", slog.String("path", path))
	return d, nil
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			candidate_id  TEXT PRIMARY KEY,
			strategy      TEXT NOT NULL,
			status        TEXT NOT NULL,
			user_decision TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			updated_at    TIMESTAMP NOT NULL,
			signal_spot   REAL,
			signal_iv_atm REAL,
			signal_em_1sd REAL,
			signal_zscore REAL,
			legs          TEXT NOT NULL,
			width         REAL NOT NULL,
			credit        REAL NOT NULL,
			max_risk      REAL NOT NULL,
			pop_pct       REAL,
			ev            REAL,
			ror           REAL,
			greeks        TEXT NOT NULL,
			expiration    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_status ON candidates(status)`,
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id       TEXT PRIMARY KEY,
			candidate_id   TEXT NOT NULL,
			strategy       TEXT NOT NULL,
			legs           TEXT NOT NULL,
			status         TEXT NOT NULL,
			rollover       TEXT NOT NULL,
			filled_credit  REAL NOT NULL,
			quantity       INTEGER NOT NULL,
			fees_estimate  REAL NOT NULL,
			max_profit     REAL NOT NULL,
			max_loss       REAL NOT NULL,
			break_even     REAL NOT NULL,
			realized_pnl   REAL,
			current_mark   REAL,
			unrealized_pnl REAL,
			opened_at      TIMESTAMP NOT NULL,
			closed_at      TIMESTAMP,
			closed_reason  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE TABLE IF NOT EXISTS trade_seq (
			id INTEGER PRIMARY KEY AUTOINCREMENT
		)`,
		`CREATE TABLE IF NOT EXISTS trade_events (
			id           TEXT PRIMARY KEY,
			type         TEXT NOT NULL,
			at           TIMESTAMP NOT NULL,
			candidate_id TEXT NOT NULL DEFAULT '',
			trade_id     TEXT NOT NULL DEFAULT '',
			note         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trade_events_at ON trade_events(at)`,
		`CREATE TABLE IF NOT EXISTS alert_policy (
			date          TEXT NOT NULL,
			strategy      TEXT NOT NULL,
			sent_today    INTEGER NOT NULL DEFAULT 0,
			last_sent_iso TEXT NOT NULL DEFAULT '',
			last_alert_id TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (date, strategy)
		)`,
		`CREATE TABLE IF NOT EXISTS alert_debounce (
			key TEXT PRIMARY KEY,
			n   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_acks (
			fingerprint TEXT PRIMARY KEY,
			reason_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alert_sent (
			alert_id TEXT PRIMARY KEY,
			sent_at  TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
