package services

import (
	"context"
	"strings"
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/notifications"
)

// Roles recognised by the order policy.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// Actor is the authenticated caller on whose behalf a service method runs.
type Actor struct {
	ID    string
	Role  string
	Email string
}

func (a Actor) IsAdmin() bool { return strings.EqualFold(a.Role, RoleAdmin) }

// OrderService implements the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error)
	List(ctx context.Context, query ListOrdersQuery) (domain.Page[domain.Order], error)
	Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	Stats(ctx context.Context, actor Actor) (domain.OrderStats, error)
}

// SystemService reports service health.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
	Build() BuildInfo
}

// CatalogLookup resolves product ids against the catalog. Unknown ids are
// reported as *catalog.NotFoundError.
type CatalogLookup interface {
	GetProducts(ctx context.Context, productIDs []string) (map[string]domain.Product, error)
}

// Notifier sends email without blocking the caller.
type Notifier interface {
	Send(ctx context.Context, email notifications.Email)
}

// EventPublisher delivers order lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.OrderEvent) error
}

// OrderMetrics records order lifecycle counters.
type OrderMetrics interface {
	OrderCreated(ctx context.Context, paymentMethod string, total int64)
	StatusChanged(ctx context.Context, from, to string)
	OrderCancelled(ctx context.Context, refunded bool)
	RefundFailed(ctx context.Context)
	OrderNumberFallback(ctx context.Context)
}

// Logger receives structured service events.
type Logger func(ctx context.Context, event string, fields map[string]any)

// OrderItemInput is one requested cart line.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// AddressInput is an address as submitted by the client. Name is a full name
// used to derive FirstName when it is missing.
type AddressInput struct {
	Name      string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
	Landmark  string
}

// CreateOrderCommand places an order for Actor.
type CreateOrderCommand struct {
	Actor           Actor
	Items           []OrderItemInput
	ShippingAddress *AddressInput
	BillingAddress  *AddressInput
	PaymentMethod   string
	Notes           string
}

// CreateOrderResult carries the persisted order and, for card payments, the
// hosted checkout URL.
type CreateOrderResult struct {
	Order       domain.Order
	CheckoutURL string
}

// ListScope selects which orders a listing may see.
type ListScope int

const (
	// ScopeCustomer lists the actor's own orders.
	ScopeCustomer ListScope = iota
	// ScopeSeller lists orders containing the actor's items.
	ScopeSeller
	// ScopeAll lists every order and is limited to admins.
	ScopeAll
)

// ListOrdersQuery describes one page of an order listing.
type ListOrdersQuery struct {
	Actor      Actor
	Scope      ListScope
	Status     string
	CustomerID string
	Sort       string
	Page       int
	Limit      int
}

// TrackingInput merges into the order's tracking info; empty fields are ignored.
type TrackingInput struct {
	Carrier           string
	TrackingNumber    string
	TrackingURL       string
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
}

// UpdateStatusCommand moves an order through its lifecycle and/or edits tracking and notes.
type UpdateStatusCommand struct {
	Actor    Actor
	OrderID  string
	Status   string
	Tracking *TrackingInput
	Notes    *string
}

// CancelOrderCommand cancels an order on behalf of its customer.
type CancelOrderCommand struct {
	Actor   Actor
	OrderID string
	Reason  string
}
