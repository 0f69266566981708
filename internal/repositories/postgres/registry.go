package postgres

import (
	"context"
	"database/sql"

	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// Registry owns the database handle shared by the Postgres repositories.
type Registry struct {
	db       *sql.DB
	orders   *OrderRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

func NewRegistry(db *sql.DB) (*Registry, error) {
	orders, err := NewOrderRepository(db)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(db)
	if err != nil {
		return nil, err
	}
	return &Registry{db: db, orders: orders, counters: counters}, nil
}

func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Registry) Close(context.Context) error {
	return r.db.Close()
}
