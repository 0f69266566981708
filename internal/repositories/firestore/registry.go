package firestore

import (
	"context"

	pfirestore "github.com/AmolSonawane1026/order-service/internal/platform/firestore"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// Registry wires the Firestore repositories around one shared provider.
type Registry struct {
	provider *pfirestore.Provider
	orders   *OrderRepository
	counters *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every Firestore repository the service needs.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, orders: orders, counters: counters}, nil
}

func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}
