package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	pfirestore "github.com/AmolSonawane1026/order-service/internal/platform/firestore"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	CustomerID      string              `firestore:"customerId"`
	CustomerEmail   string              `firestore:"customerEmail"`
	Items           []orderItemDocument `firestore:"items"`
	SellerIDs       []string            `firestore:"sellerIds"`
	Subtotal        int64               `firestore:"subtotal"`
	Tax             int64               `firestore:"tax"`
	ShippingCharges int64               `firestore:"shippingCharges"`
	Discount        int64               `firestore:"discount"`
	TotalAmount     int64               `firestore:"totalAmount"`
	Status          string              `firestore:"status"`
	PaymentInfo     paymentDocument     `firestore:"paymentInfo"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	BillingAddress  addressDocument     `firestore:"billingAddress"`
	TrackingInfo    trackingDocument    `firestore:"trackingInfo"`
	Timeline        []timelineDocument  `firestore:"timeline"`
	Notes           string              `firestore:"notes,omitempty"`
	CancelReason    string              `firestore:"cancelReason,omitempty"`
	ReturnReason    string              `firestore:"returnReason,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	SellerID  string `firestore:"sellerId"`
	Name      string `firestore:"name"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
	Image     string `firestore:"image,omitempty"`
	Subtotal  int64  `firestore:"subtotal"`
}

type paymentDocument struct {
	Method                string     `firestore:"method"`
	Status                string     `firestore:"status"`
	StripePaymentIntentID string     `firestore:"stripePaymentIntentId,omitempty"`
	StripeSessionID       string     `firestore:"stripeSessionId,omitempty"`
	TransactionID         string     `firestore:"transactionId,omitempty"`
	PaidAt                *time.Time `firestore:"paidAt,omitempty"`
	Amount                int64      `firestore:"amount"`
	Currency              string     `firestore:"currency"`
}

type addressDocument struct {
	FirstName string `firestore:"firstName"`
	LastName  string `firestore:"lastName,omitempty"`
	Phone     string `firestore:"phone"`
	Email     string `firestore:"email,omitempty"`
	Street    string `firestore:"street"`
	City      string `firestore:"city"`
	State     string `firestore:"state"`
	ZipCode   string `firestore:"zipCode"`
	Country   string `firestore:"country"`
	Landmark  string `firestore:"landmark,omitempty"`
}

type trackingDocument struct {
	Carrier           string     `firestore:"carrier,omitempty"`
	TrackingNumber    string     `firestore:"trackingNumber,omitempty"`
	TrackingURL       string     `firestore:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `firestore:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `firestore:"actualDelivery,omitempty"`
}

type timelineDocument struct {
	Status    string    `firestore:"status"`
	Message   string    `firestore:"message"`
	Timestamp time.Time `firestore:"timestamp"`
}

// OrderRepository stores orders as single documents in the orders collection.
type OrderRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

func (r *OrderRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection), nil
}

// Insert creates the order document and fails with a conflict when the id is taken.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(order.ID).Create(ctx, encodeOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces an existing order document. It never creates one.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	_, err := r.Mutate(ctx, order.ID, func(stored *domain.Order) error {
		*stored = order
		return nil
	})
	return err
}

// Mutate runs fn against the stored order inside a Firestore transaction, so a
// write that lands between the read and the commit forces a retry.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutation) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, pfirestore.NotFound("orders.mutate", orderID)
	}
	if fn == nil {
		return domain.Order{}, repositories.InvalidArgument("orders.mutate", "mutation is required")
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	ref := coll.Doc(orderID)

	var (
		updated  domain.Order
		rejected error
	)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rejected = nil
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return pfirestore.NotFound("orders.mutate", orderID)
		}
		if err != nil {
			return err
		}
		order, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if err := fn(&order); err != nil {
			rejected = err
			return err
		}
		order.ID = orderID
		updated = order
		return tx.Set(ref, encodeOrder(order))
	})
	if rejected != nil {
		return domain.Order{}, rejected
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.mutate", err)
	}
	return updated, nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(orderID).Delete(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, pfirestore.NotFound("orders.find", orderID)
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := coll.Doc(orderID).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.find", err)
	}
	return decodeOrder(snap)
}

// List applies the filter, counts all matches and returns the requested page.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	query := applyFilter(coll.Query, filter.CustomerID, filter.SellerID, filter.Status)

	total, err := countQuery(ctx, query)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	sort := filter.Sort
	if sort.Field == "" {
		sort = domain.DefaultOrderSort
	}
	direction := firestore.Asc
	if sort.Descending {
		direction = firestore.Desc
	}
	query = query.OrderBy(string(sort.Field), direction)
	if offset := filter.Offset(); offset > 0 {
		query = query.Offset(offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	orders := make([]domain.Order, 0, filter.Limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.Page[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		order, err := decodeOrder(snap)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
		orders = append(orders, order)
	}

	return domain.Page[domain.Order]{Items: orders, Page: filter.Page, Limit: filter.Limit, Total: total}, nil
}

// Stats groups orders by status. Only the three fields it needs are read.
func (r *OrderRepository) Stats(ctx context.Context, filter repositories.OrderStatsFilter) (domain.OrderStats, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return domain.OrderStats{}, err
	}

	query := applyFilter(coll.Query, "", filter.SellerID, "").Select("status", "totalAmount", "paymentInfo.status")
	iter := query.Documents(ctx)
	defer iter.Stop()

	acc := newStatsAccumulator()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.OrderStats{}, pfirestore.WrapError("orders.stats", err)
		}
		var row struct {
			Status      string `firestore:"status"`
			TotalAmount int64  `firestore:"totalAmount"`
			PaymentInfo struct {
				Status string `firestore:"status"`
			} `firestore:"paymentInfo"`
		}
		if err := snap.DataTo(&row); err != nil {
			return domain.OrderStats{}, fmt.Errorf("decode order stats %s: %w", snap.Ref.ID, err)
		}
		acc.add(domain.OrderStatus(row.Status), row.TotalAmount, domain.PaymentStatus(row.PaymentInfo.Status))
	}
	return acc.result(), nil
}

func applyFilter(query firestore.Query, customerID, sellerID string, status domain.OrderStatus) firestore.Query {
	if customerID != "" {
		query = query.Where("customerId", "==", customerID)
	}
	if sellerID != "" {
		query = query.Where("sellerIds", "array-contains", sellerID)
	}
	if status != "" {
		query = query.Where("status", "==", string(status))
	}
	return query
}

func countQuery(ctx context.Context, query firestore.Query) (int64, error) {
	result, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("orders.count", err)
	}
	switch v := result["total"].(type) {
	case int64:
		return v, nil
	case *firestorepb.Value:
		return v.GetIntegerValue(), nil
	default:
		return 0, fmt.Errorf("orders.count: unexpected aggregation value %T", v)
	}
}

func encodeOrder(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument(item))
	}
	timeline := make([]timelineDocument, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timeline = append(timeline, timelineDocument{Status: string(entry.Status), Message: entry.Message, Timestamp: entry.Timestamp})
	}
	sellerIDs := order.SellerIDs
	if len(sellerIDs) == 0 {
		sellerIDs = domain.SellerIDsFor(order.Items)
	}
	return orderDocument{
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		Items:           items,
		SellerIDs:       sellerIDs,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		ShippingCharges: order.ShippingCharges,
		Discount:        order.Discount,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		PaymentInfo: paymentDocument{
			Method:                string(order.Payment.Method),
			Status:                string(order.Payment.Status),
			StripePaymentIntentID: order.Payment.StripePaymentIntentID,
			StripeSessionID:       order.Payment.StripeSessionID,
			TransactionID:         order.Payment.TransactionID,
			PaidAt:                order.Payment.PaidAt,
			Amount:                order.Payment.Amount,
			Currency:              order.Payment.Currency,
		},
		ShippingAddress: addressDocument(order.ShippingAddress),
		BillingAddress:  addressDocument(order.BillingAddress),
		TrackingInfo:    trackingDocument(order.Tracking),
		Timeline:        timeline,
		Notes:           order.Notes,
		CancelReason:    order.CancelReason,
		ReturnReason:    order.ReturnReason,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func decodeOrder(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}

	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem(item))
	}
	timeline := make([]domain.TimelineEntry, 0, len(doc.Timeline))
	for _, entry := range doc.Timeline {
		timeline = append(timeline, domain.TimelineEntry{Status: domain.OrderStatus(entry.Status), Message: entry.Message, Timestamp: entry.Timestamp})
	}

	return domain.Order{
		ID:              snap.Ref.ID,
		OrderNumber:     doc.OrderNumber,
		CustomerID:      doc.CustomerID,
		CustomerEmail:   doc.CustomerEmail,
		Items:           items,
		SellerIDs:       doc.SellerIDs,
		Subtotal:        doc.Subtotal,
		Tax:             doc.Tax,
		ShippingCharges: doc.ShippingCharges,
		Discount:        doc.Discount,
		TotalAmount:     doc.TotalAmount,
		Status:          domain.OrderStatus(doc.Status),
		Payment: domain.PaymentInfo{
			Method:                domain.PaymentMethod(doc.PaymentInfo.Method),
			Status:                domain.PaymentStatus(doc.PaymentInfo.Status),
			StripePaymentIntentID: doc.PaymentInfo.StripePaymentIntentID,
			StripeSessionID:       doc.PaymentInfo.StripeSessionID,
			TransactionID:         doc.PaymentInfo.TransactionID,
			PaidAt:                doc.PaymentInfo.PaidAt,
			Amount:                doc.PaymentInfo.Amount,
			Currency:              doc.PaymentInfo.Currency,
		},
		ShippingAddress: domain.Address(doc.ShippingAddress),
		BillingAddress:  domain.Address(doc.BillingAddress),
		Tracking:        domain.TrackingInfo(doc.TrackingInfo),
		Timeline:        timeline,
		Notes:           doc.Notes,
		CancelReason:    doc.CancelReason,
		ReturnReason:    doc.ReturnReason,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}
