package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSlot implements Slot using PostgreSQL as the source of truth.
// Blobs are stored as JSONB in a single key-value table.
type PostgresSlot struct {
	pool *pgxpool.Pool
}

// NewPostgresSlot creates a new PostgreSQL-backed slot.
func NewPostgresSlot(pool *pgxpool.Pool) *PostgresSlot {
	return &PostgresSlot{pool: pool}
}

// Migrate creates the slot table if it does not exist.
func (s *PostgresSlot) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS kv_slots (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("migrate kv_slots: %w", err)
	}
	return nil
}

func (s *PostgresSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value::TEXT FROM kv_slots WHERE key = $1`, key).
		Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *PostgresSlot) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_slots (key, value, updated_at)
		 VALUES ($1, $2::JSONB, now())
		 ON CONFLICT (key) DO UPDATE SET
		     value = EXCLUDED.value,
		     updated_at = EXCLUDED.updated_at`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("put slot %s: %w", key, err)
	}
	return nil
}
