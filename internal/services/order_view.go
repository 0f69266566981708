package services

import (
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
)

// OrderView is the JSON representation of an order shared by HTTP responses
// and email payloads.
type OrderView struct {
	ID              string              `json:"_id"`
	OrderNumber     string              `json:"orderNumber"`
	CustomerID      string              `json:"customerId"`
	CustomerEmail   string              `json:"customerEmail"`
	Items           []OrderItemView     `json:"items"`
	Subtotal        int64               `json:"subtotal"`
	Tax             int64               `json:"tax"`
	ShippingCharges int64               `json:"shippingCharges"`
	Discount        int64               `json:"discount"`
	TotalAmount     int64               `json:"totalAmount"`
	Status          string              `json:"status"`
	PaymentInfo     PaymentInfoView     `json:"paymentInfo"`
	ShippingAddress AddressView         `json:"shippingAddress"`
	BillingAddress  AddressView         `json:"billingAddress"`
	TrackingInfo    TrackingInfoView    `json:"trackingInfo"`
	Timeline        []TimelineEntryView `json:"timeline"`
	Notes           string              `json:"notes,omitempty"`
	CancelReason    string              `json:"cancelReason,omitempty"`
	ReturnReason    string              `json:"returnReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type OrderItemView struct {
	ProductID string `json:"productId"`
	SellerID  string `json:"sellerId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
	Subtotal  int64  `json:"subtotal"`
}

type PaymentInfoView struct {
	Method                string     `json:"method"`
	Status                string     `json:"status"`
	StripePaymentIntentID string     `json:"stripePaymentIntentId,omitempty"`
	StripeSessionID       string     `json:"stripeSessionId,omitempty"`
	TransactionID         string     `json:"transactionId,omitempty"`
	PaidAt                *time.Time `json:"paidAt,omitempty"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
}

type AddressView struct {
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

type TrackingInfoView struct {
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"trackingNumber,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time `json:"actualDelivery,omitempty"`
}

type TimelineEntryView struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderView converts the domain order for serialisation.
func NewOrderView(order domain.Order) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ProductID: item.ProductID,
			SellerID:  item.SellerID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
			Subtotal:  item.Subtotal,
		})
	}
	timeline := make([]TimelineEntryView, 0, len(order.Timeline))
	for _, entry := range order.Timeline {
		timeline = append(timeline, TimelineEntryView{
			Status:    string(entry.Status),
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
		})
	}

	return OrderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		CustomerEmail:   order.CustomerEmail,
		Items:           items,
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		ShippingCharges: order.ShippingCharges,
		Discount:        order.Discount,
		TotalAmount:     order.TotalAmount,
		Status:          string(order.Status),
		PaymentInfo: PaymentInfoView{
			Method:                string(order.Payment.Method),
			Status:                string(order.Payment.Status),
			StripePaymentIntentID: order.Payment.StripePaymentIntentID,
			StripeSessionID:       order.Payment.StripeSessionID,
			TransactionID:         order.Payment.TransactionID,
			PaidAt:                order.Payment.PaidAt,
			Amount:                order.Payment.Amount,
			Currency:              order.Payment.Currency,
		},
		ShippingAddress: addressView(order.ShippingAddress),
		BillingAddress:  addressView(order.BillingAddress),
		TrackingInfo: TrackingInfoView{
			Carrier:           order.Tracking.Carrier,
			TrackingNumber:    order.Tracking.TrackingNumber,
			TrackingURL:       order.Tracking.TrackingURL,
			EstimatedDelivery: order.Tracking.EstimatedDelivery,
			ActualDelivery:    order.Tracking.ActualDelivery,
		},
		Timeline:     timeline,
		Notes:        order.Notes,
		CancelReason: order.CancelReason,
		ReturnReason: order.ReturnReason,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

// NewOrderViews converts a page of orders.
func NewOrderViews(orders []domain.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrderView(order))
	}
	return out
}

func addressView(a domain.Address) AddressView {
	return AddressView{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Email:     a.Email,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		ZipCode:   a.ZipCode,
		Country:   a.Country,
		Landmark:  a.Landmark,
	}
}
