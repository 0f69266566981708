package postgres

import (
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
)

// orderDocument is the JSONB shape of an order. The id and the indexed columns
// are stored alongside it.
type orderDocument struct {
	OrderNumber     string          `json:"orderNumber"`
	CustomerID      string          `json:"customerId"`
	CustomerEmail   string          `json:"customerEmail"`
	Items           []itemDocument  `json:"items"`
	SellerIDs       []string        `json:"sellerIds"`
	Subtotal        int64           `json:"subtotal"`
	Tax             int64           `json:"tax"`
	ShippingCharges int64           `json:"shippingCharges"`
	Discount        int64           `json:"discount"`
	TotalAmount     int64           `json:"totalAmount"`
	Status          string          `json:"status"`
	PaymentInfo     paymentDocument `json:"paymentInfo"`
	ShippingAddress addressDocument `json:"shippingAddress"`
	BillingAddress  addressDocument `json:"billingAddress"`
	TrackingInfo    trackingDoc     `json:"trackingInfo"`
	Timeline        []timelineDoc   `json:"timeline"`
	Notes           string          `json:"notes,omitempty"`
	CancelReason    string          `json:"cancelReason,omitempty"`
	ReturnReason    string          `json:"returnReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type itemDocument struct {
	ProductID string `json:"productId"`
	SellerID  string `json:"sellerId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
	Subtotal  int64  `json:"subtotal"`
}

type paymentDocument struct {
	Method                string     `json:"method"`
	Status                string     `json:"status"`
	StripePaymentIntentID string     `json:"stripePaymentIntentId,omitempty"`
	StripeSessionID       string     `json:"stripeSessionId,omitempty"`
	TransactionID         string     `json:"transactionId,omitempty"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
}

type addressDocument struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Landmark  string `json:"landmark,omitempty"`
}

type trackingDoc struct {
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `json:"actualDelivery,omitempty"`
}

type timelineDoc struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func toDocument(order domain.Order) orderDocument {
	items := make([]itemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemDocument(item))
	}
	timeline := make([]timelineDoc, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timeline = append(timeline, timelineDoc{Status: string(entry.Status), Message: entry.Message, Timestamp: entry.Timestamp.UTC()})
	}
	return orderDocument{
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		Items:           items,
		SellerIDs:       sellerIDs(order),
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
		TrackingInfo:    trackingDoc(order.Tracking),
		Timeline:        timeline,
		Notes:           order.Notes,
		CancelReason:    order.CancelReason,
		ReturnReason:    order.ReturnReason,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func fromDocument(id string, doc orderDocument) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem(item))
	}
	timeline := make([]domain.TimelineEntry, 0, len(doc.Timeline))
	for _, entry := range doc.Timeline {
		timeline = append(timeline, domain.TimelineEntry{Status: domain.OrderStatus(entry.Status), Message: entry.Message, Timestamp: entry.Timestamp})
	}
	return domain.Order{
		ID:              id,
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
	}
}

func sellerIDs(order domain.Order) []string {
	if len(order.SellerIDs) > 0 {
		return order.SellerIDs
	}
	return domain.SellerIDsFor(order.Items)
}
