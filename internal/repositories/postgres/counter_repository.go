package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// CounterRepository hands out sequence numbers from the order_counters table.
// The upsert is a single statement, so concurrent callers never see the same value.
type CounterRepository struct {
	db    *sql.DB
	clock func() time.Time
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

func NewCounterRepository(db *sql.DB) (*CounterRepository, error) {
	if db == nil {
		return nil, errors.New("counter repository requires a database handle")
	}
	return &CounterRepository{db: db, clock: time.Now}, nil
}

func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.InvalidArgument("counters.next", "counter id is required")
	}
	if step <= 0 {
		step = 1
	}

	var next int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO order_counters (id, current_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET current_value = order_counters.current_value + EXCLUDED.current_value,
		    updated_at = EXCLUDED.updated_at
		RETURNING current_value
	`, id, step, r.clock().UTC()).Scan(&next)
	if err != nil {
		return 0, wrapError("counters.next", err)
	}
	return next, nil
}
