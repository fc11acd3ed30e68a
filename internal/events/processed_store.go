package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records webhook events that were already handled so
// provider redeliveries are idempotent.
type ProcessedStore struct {
	db rowQuerier
}

// NewProcessedStore builds a store backed by the pgx pool.
func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{db: pool}
}

// NewProcessedStoreWithQuerier allows injecting mocks for tests.
func NewProcessedStoreWithQuerier(db rowQuerier) *ProcessedStore {
	if db == nil {
		panic("events: querier required")
	}
	return &ProcessedStore{db: db}
}

// MarkProcessed inserts the provider event id, returning false when it was
// seen before.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
