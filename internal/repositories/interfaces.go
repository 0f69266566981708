package repositories

import (
	"context"
	"math"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Counters() CounterRepository
	// Ping probes the backing store for readiness checks.
	Ping(ctx context.Context) error
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order documents and answers listing and aggregation queries.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	// Update replaces an existing order. A missing order is reported as not found.
	Update(ctx context.Context, order domain.Order) error
	// Mutate reads the order, applies fn and writes the result atomically. An
	// error from fn aborts the write and is returned unchanged. fn may run more
	// than once when the store retries on contention.
	Mutate(ctx context.Context, orderID string, fn OrderMutation) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	Stats(ctx context.Context, filter OrderStatsFilter) (domain.OrderStats, error)
}

// OrderMutation edits an order in place inside a repository transaction.
type OrderMutation func(order *domain.Order) error

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// OrderListFilter narrows order listings. Empty fields do not filter.
type OrderListFilter struct {
	CustomerID string
	SellerID   string
	Status     domain.OrderStatus
	Sort       domain.OrderSort
	Page       int
	Limit      int
}

// MaxListOffset is the largest offset handed to a store. Pages past it come
// back empty.
const MaxListOffset = math.MaxInt32

// Offset converts the 1-based page into a row offset, saturating at
// MaxListOffset instead of overflowing.
func (f OrderListFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	if f.Page-1 > MaxListOffset/f.Limit {
		return MaxListOffset
	}
	return (f.Page - 1) * f.Limit
}

// OrderStatsFilter scopes aggregation to one seller when SellerID is set.
type OrderStatsFilter struct {
	SellerID string
}
