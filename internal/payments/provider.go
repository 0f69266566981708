// Package payments wraps the payment service provider used for hosted checkout.
package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("payments: invalid webhook signature")

// CheckoutLineItem is one line shown on the hosted checkout page. UnitAmount is
// in major currency units; providers convert to minor units.
type CheckoutLineItem struct {
	Name       string
	ImageURL   string
	Quantity   int64
	UnitAmount int64
}

// CheckoutSessionRequest captures what is needed to open a hosted checkout for an order.
type CheckoutSessionRequest struct {
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
	Items         []CheckoutLineItem
}

// CheckoutSession is the provider session the customer is redirected to.
type CheckoutSession struct {
	ID        string
	URL       string
	IntentID  string
	ExpiresAt time.Time
}

// RefundRequest refunds the full amount captured on a payment intent.
type RefundRequest struct {
	IntentID string
	OrderID  string
}

// Refund reports the provider's view of a refund.
type Refund struct {
	ID     string
	Status string
}

// WebhookEvent is the verified envelope of a provider webhook.
type WebhookEvent struct {
	ID   string
	Type string
}

// Gateway opens checkout sessions and issues refunds.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	Refund(ctx context.Context, req RefundRequest) (Refund, error)
}

// WebhookVerifier authenticates webhook payloads.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// MinorUnits converts a whole major-unit amount into the currency's minor unit
// (paise for INR, cents for USD, unchanged for JPY).
func MinorUnits(amount int64, code string) (int64, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, fmt.Errorf("payments: currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	factor := int64(math.Pow10(scale))
	return amount * factor, nil
}
