// Package postgres provides a PostgreSQL implementation of audit.Sink.
// It uses pgx/v5 for connection pooling and appends one row per chain
// outcome.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/torhaus-dev/torhaus/pkg/audit"
)

// Sink is a PostgreSQL-backed audit sink.
type Sink struct {
	pool *pgxpool.Pool
}

// Ensure Sink implements audit.Sink at compile time.
var _ audit.Sink = (*Sink)(nil)

// New creates a PostgreSQL sink with the given configuration. If
// MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Sink{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Record appends one chain outcome row.
func (s *Sink) Record(ctx context.Context, rec audit.Record) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO chain_outcomes (
			request_id, path, outcome, account_id, user_id, token_source, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		rec.RequestID, rec.Path, rec.Outcome,
		nullString(rec.AccountID), nullString(rec.UserID), nullString(rec.TokenSource),
		at,
	)
	if err != nil {
		return fmt.Errorf("inserting chain outcome: %w", err)
	}
	return nil
}

// RecentByAccount returns up to limit outcomes for an account, newest
// first. Used by operator tooling, never by the chain.
func (s *Sink) RecentByAccount(ctx context.Context, accountID string, limit int) ([]audit.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, path, outcome,
		       COALESCE(account_id, ''), COALESCE(user_id, ''), COALESCE(token_source, ''),
		       recorded_at
		FROM chain_outcomes
		WHERE account_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chain outcomes: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var rec audit.Record
		if err := rows.Scan(
			&rec.RequestID, &rec.Path, &rec.Outcome,
			&rec.AccountID, &rec.UserID, &rec.TokenSource,
			&rec.At,
		); err != nil {
			return nil, fmt.Errorf("scanning chain outcome: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *Sink) Close() {
	s.pool.Close()
}

// nullString maps "" to NULL so absent identity fields stay distinguishable
// from empty ones.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
