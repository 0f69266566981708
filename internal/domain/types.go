package domain

import (
	"strings"
	"time"
)

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was placed but nothing else happened yet.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaymentPending indicates a hosted checkout session is awaiting payment.
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	// OrderStatusPaid indicates payment was captured.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusConfirmed indicates the order was accepted for fulfilment.
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
	OrderStatusRefunded       OrderStatus = "refunded"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentPending,
	OrderStatusPaid,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
	OrderStatusRefunded,
}

// OrderStatuses returns every status an order may hold, in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// ParseOrderStatus normalises the raw value and reports whether it names a known status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	candidate := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, status := range orderStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// PaymentMethod identifies how the customer pays for the order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
)

// AcceptedAtCheckout reports whether customers may choose the method when placing an order.
func (m PaymentMethod) AcceptedAtCheckout() bool {
	return m == PaymentMethodCOD || m == PaymentMethodStripe
}

// PaymentStatus tracks the money side of the order independently of fulfilment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

const (
	// DefaultCurrency is the store currency; amounts are whole rupees.
	DefaultCurrency = "inr"
	// DefaultCountry fills shipping addresses that omit a country.
	DefaultCountry = "India"
	// DefaultFirstName is used when the address carries neither firstName nor name.
	DefaultFirstName = "Customer"
)

// Order is the persisted purchase record. Monetary fields are computed once at creation.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	CustomerEmail   string
	Items           []OrderItem
	SellerIDs       []string
	Subtotal        int64
	Tax             int64
	ShippingCharges int64
	Discount        int64
	TotalAmount     int64
	Status          OrderStatus
	Payment         PaymentInfo
	ShippingAddress Address
	BillingAddress  Address
	Tracking        TrackingInfo
	Timeline        []TimelineEntry
	Notes           string
	CancelReason    string
	ReturnReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem snapshots a catalog product at the moment the order was placed.
type OrderItem struct {
	ProductID string
	SellerID  string
	Name      string
	Price     int64
	Quantity  int
	Image     string
	Subtotal  int64
}

// PaymentInfo holds the payment method and processor references.
type PaymentInfo struct {
	Method                PaymentMethod
	Status                PaymentStatus
	StripePaymentIntentID string
	StripeSessionID       string
	TransactionID         string
	PaidAt                *time.Time
	Amount                int64
	Currency              string
}

// Address is a structured postal address used for shipping and billing.
type Address struct {
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

// TrackingInfo is filled in by sellers or admins once the order ships.
type TrackingInfo struct {
	Carrier           string
	TrackingNumber    string
	TrackingURL       string
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
}

// TimelineEntry is one append-only audit record of a status change.
type TimelineEntry struct {
	Status    OrderStatus
	Message   string
	Timestamp time.Time
}

// ContainsSeller reports whether any line item belongs to the seller.
func (o Order) ContainsSeller(sellerID string) bool {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return false
	}
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerIDsFor returns the distinct seller ids of the items in first-seen order.
func SellerIDsFor(items []OrderItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.SellerID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Product is the catalog view of a product used for cross-validation.
type Product struct {
	ID            string
	SellerID      string
	Name          string
	Price         int64
	DiscountPrice *int64
	IsActive      bool
	Stock         int
	ImageURL      string
}

// SortField lists the fields order listings may be sorted by.
type SortField string

const (
	SortFieldCreatedAt   SortField = "createdAt"
	SortFieldTotalAmount SortField = "totalAmount"
)

// OrderSort pairs a sort field with a direction.
type OrderSort struct {
	Field      SortField
	Descending bool
}

// DefaultOrderSort lists newest orders first.
var DefaultOrderSort = OrderSort{Field: SortFieldCreatedAt, Descending: true}

// ParseOrderSort accepts "field" or "-field" for the supported sort fields.
func ParseOrderSort(raw string) (OrderSort, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultOrderSort, true
	}
	desc := strings.HasPrefix(raw, "-")
	field := SortField(strings.TrimPrefix(raw, "-"))
	switch field {
	case SortFieldCreatedAt, SortFieldTotalAmount:
		return OrderSort{Field: field, Descending: desc}, true
	default:
		return OrderSort{}, false
	}
}

// Page is an offset-paginated slice of results along with the total match count.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

// StatusStat aggregates order count and value for one status.
type StatusStat struct {
	Status      OrderStatus
	Count       int64
	TotalAmount int64
}

// OrderStats summarises orders for dashboards.
type OrderStats struct {
	ByStatus     []StatusStat
	TotalOrders  int64
	TotalRevenue int64
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
