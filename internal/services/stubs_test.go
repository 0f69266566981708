package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/notifications"
	"github.com/AmolSonawane1026/order-service/internal/payments"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

type stubRepoError struct {
	notFound bool
	conflict bool
}

func (e stubRepoError) Error() string       { return "repository error" }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return false }

// memoryOrders keeps orders in a map; the fn fields override individual calls.
type memoryOrders struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	inserts int
	updates int
	deletes []string

	insertFn func(context.Context, domain.Order) error
	updateFn func(context.Context, domain.Order) error
	deleteFn func(context.Context, string) error
	// interleave runs once, before the next read of an order, to stand in for
	// another request committing first.
	interleave func(orderID string)
	listFn   func(context.Context, repositories.OrderListFilter) (domain.Page[domain.Order], error)
	statsFn  func(context.Context, repositories.OrderStatsFilter) (domain.OrderStats, error)
}

func newMemoryOrders(seed ...domain.Order) *memoryOrders {
	repo := &memoryOrders{orders: map[string]domain.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (m *memoryOrders) Insert(ctx context.Context, order domain.Order) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	m.orders[order.ID] = order
	return nil
}

func (m *memoryOrders) Update(ctx context.Context, order domain.Order) error {
	if m.updateFn != nil {
		if err := m.updateFn(ctx, order); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return stubRepoError{notFound: true}
	}
	m.updates++
	m.orders[order.ID] = order
	return nil
}

func (m *memoryOrders) Delete(ctx context.Context, orderID string) error {
	if m.deleteFn != nil {
		if err := m.deleteFn(ctx, orderID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, orderID)
	delete(m.orders, orderID)
	return nil
}

func (m *memoryOrders) Mutate(_ context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	m.runInterleave(orderID)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, stubRepoError{notFound: true}
	}
	order.Timeline = append([]domain.TimelineEntry(nil), order.Timeline...)
	if err := fn(&order); err != nil {
		return domain.Order{}, err
	}
	m.updates++
	m.orders[orderID] = order
	return order, nil
}

func (m *memoryOrders) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	m.runInterleave(orderID)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, stubRepoError{notFound: true}
	}
	return order, nil
}

func (m *memoryOrders) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return domain.Page[domain.Order]{}, nil
}

func (m *memoryOrders) Stats(ctx context.Context, filter repositories.OrderStatsFilter) (domain.OrderStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, filter)
	}
	return domain.OrderStats{}, nil
}

func (m *memoryOrders) runInterleave(orderID string) {
	m.mu.Lock()
	hook := m.interleave
	m.interleave = nil
	m.mu.Unlock()
	if hook != nil {
		hook(orderID)
	}
}

// commit applies fn to the stored order the way a competing request would.
func (m *memoryOrders) commit(orderID string, fn func(*domain.Order)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.orders[orderID]
	order.Timeline = append([]domain.TimelineEntry(nil), order.Timeline...)
	fn(&order)
	m.orders[orderID] = order
}

func (m *memoryOrders) get(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *memoryOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type memoryCounters struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (c *memoryCounters) Next(_ context.Context, counterID string, step int64) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]int64{}
	}
	c.values[counterID] += step
	return c.values[counterID], nil
}

type stubCatalog struct {
	products map[string]domain.Product
	err      error
}

func (c stubCatalog) GetProducts(_ context.Context, ids []string) (map[string]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := c.products[id]; ok {
			out[id] = product
		}
	}
	return out, nil
}

type stubGateway struct {
	createFn func(context.Context, payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	refundFn func(context.Context, payments.RefundRequest) (payments.Refund, error)
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if g.createFn != nil {
		return g.createFn(ctx, req)
	}
	return payments.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

func (g *stubGateway) Refund(ctx context.Context, req payments.RefundRequest) (payments.Refund, error) {
	if g.refundFn != nil {
		return g.refundFn(ctx, req)
	}
	return payments.Refund{ID: "re_test", Status: "succeeded"}, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	emails []notifications.Email
}

func (n *captureNotifier) Send(_ context.Context, email notifications.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, email)
}

type captureEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (c *captureEvents) Publish(_ context.Context, event domain.OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type captureLog struct {
	mu     sync.Mutex
	events []string
}

func (l *captureLog) log(_ context.Context, event string, _ map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *captureLog) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

type countingMetrics struct {
	mu        sync.Mutex
	created   int
	changed   int
	cancelled int
	refundErr int
	fallback  int
}

func (m *countingMetrics) OrderCreated(context.Context, string, int64)   { m.inc(&m.created) }
func (m *countingMetrics) StatusChanged(context.Context, string, string) { m.inc(&m.changed) }
func (m *countingMetrics) OrderCancelled(context.Context, bool)          { m.inc(&m.cancelled) }
func (m *countingMetrics) RefundFailed(context.Context)                  { m.inc(&m.refundErr) }
func (m *countingMetrics) OrderNumberFallback(context.Context)           { m.inc(&m.fallback) }

func (m *countingMetrics) inc(field *int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field++
}

var fixedNow = time.Date(2025, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      OrderService
	orders   *memoryOrders
	counters *memoryCounters
	gateway  *stubGateway
	notifier *captureNotifier
	events   *captureEvents
	logs     *captureLog
	metrics  *countingMetrics
}

func newFixture(catalog CatalogLookup, seed ...domain.Order) *fixture {
	f := &fixture{
		orders:   newMemoryOrders(seed...),
		counters: &memoryCounters{},
		gateway:  &stubGateway{},
		notifier: &captureNotifier{},
		events:   &captureEvents{},
		logs:     &captureLog{},
		metrics:  &countingMetrics{},
	}
	var seq int
	var mu sync.Mutex
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:      f.orders,
		Counters:    f.counters,
		Catalog:     catalog,
		Payments:    f.gateway,
		Notifier:    f.notifier,
		Events:      f.events,
		Metrics:     f.metrics,
		FrontendURL: "https://shop.example.com/",
		Location:    time.UTC,
		Clock:       func() time.Time { return fixedNow },
		IDGenerator: func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("TEST%04d", seq)
		},
		Random: func(int) int { return 42 },
		Logger: f.logs.log,
	})
	if err != nil {
		panic(err)
	}
	f.svc = svc
	return f
}

func product(id, seller string, price int64, stock int) domain.Product {
	return domain.Product{ID: id, SellerID: seller, Name: "Product " + id, Price: price, IsActive: true, Stock: stock}
}

func catalogOf(products ...domain.Product) stubCatalog {
	out := stubCatalog{products: map[string]domain.Product{}}
	for _, p := range products {
		out.products[p.ID] = p
	}
	return out
}

func shippingAddress() *AddressInput {
	return &AddressInput{
		Name:    "Asha Rao",
		Phone:   "9876543210",
		Email:   "ship@example.com",
		Street:  "12 MG Road",
		City:    "Pune",
		State:   "MH",
		ZipCode: "411001",
	}
}

var customer = Actor{ID: "cust-1", Role: RoleCustomer, Email: "asha@example.com"}

func existingOrder(id string, status domain.OrderStatus) domain.Order {
	created := fixedNow.Add(-time.Hour)
	order := domain.Order{
		ID:            id,
		OrderNumber:   "ORD2510140007",
		CustomerID:    customer.ID,
		CustomerEmail: customer.Email,
		Items: []domain.OrderItem{
			{ProductID: "p1", SellerID: "seller-1", Name: "Mug", Price: 200, Quantity: 2, Subtotal: 400},
		},
		SellerIDs:       []string{"seller-1"},
		Subtotal:        400,
		Tax:             72,
		ShippingCharges: 50,
		TotalAmount:     522,
		Status:          status,
		Payment: domain.PaymentInfo{
			Method:   domain.PaymentMethodCOD,
			Status:   domain.PaymentStatusPending,
			Amount:   522,
			Currency: domain.DefaultCurrency,
		},
		ShippingAddress: domain.Address{FirstName: "Asha", Country: domain.DefaultCountry},
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	order.AppendTimeline(status, created)
	return order
}
