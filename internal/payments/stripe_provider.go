package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeLogger receives provider events; it matches the service logger signature.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	sessions stripeSessionAPI
	refunds  stripeRefundAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey        string
	WebhookSecret string
	Backends      *stripe.Backends
	Logger        StripeLogger
	Clock         func() time.Time
	Clients       *stripeClients
}

// StripeProvider implements Gateway and WebhookVerifier with Stripe Checkout.
type StripeProvider struct {
	api           stripeClients
	webhookSecret string
	clock         func() time.Time
	logger        StripeLogger
}

var (
	_ Gateway         = (*StripeProvider)(nil)
	_ WebhookVerifier = (*StripeProvider)(nil)
)

func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{sessions: sc.CheckoutSessions, refunds: sc.Refunds}
	}
	if clients.sessions == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		api:           clients,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		clock:         func() time.Time { return clock().UTC() },
		logger:        logger,
	}, nil
}

// CreateCheckoutSession opens a card-only Checkout session for the order. The
// order id doubles as client reference and idempotency key, so a retried
// request never opens a second session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	code := strings.ToLower(strings.TrimSpace(req.Currency))
	if code == "" {
		return CheckoutSession{}, errors.New("stripe: currency is required")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		amount, err := MinorUnits(item.UnitAmount, code)
		if err != nil {
			return CheckoutSession{}, err
		}
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			product.Images = stripe.StringSlice([]string{item.ImageURL})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(code),
				UnitAmount:  stripe.Int64(amount),
				ProductData: product,
			},
		})
	}
	if len(lineItems) == 0 {
		return CheckoutSession{}, errors.New("stripe: at least one line item is required")
	}

	metadata := map[string]string{
		"orderId":     req.OrderID,
		"orderNumber": req.OrderNumber,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
		Metadata:           metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	expiresAt := req.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = p.clock().Add(30 * time.Minute)
	}
	params.ExpiresAt = stripe.Int64(expiresAt.Unix())

	session, err := p.api.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	intentID := ""
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"orderId":   req.OrderID,
		"sessionId": session.ID,
	})

	return CheckoutSession{
		ID:        session.ID,
		URL:       session.URL,
		IntentID:  intentID,
		ExpiresAt: expiresAt,
	}, nil
}

// Refund returns the full captured amount of the intent to the customer.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (Refund, error) {
	if strings.TrimSpace(req.IntentID) == "" {
		return Refund{}, errors.New("stripe: payment intent id is required")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if req.OrderID != "" {
		params.SetIdempotencyKey("refund-" + req.OrderID)
		params.AddMetadata("orderId", req.OrderID)
	}

	refund, err := p.api.refunds.New(params)
	if err != nil {
		return Refund{}, fmt.Errorf("stripe: refund payment intent: %w", err)
	}
	p.logger(ctx, "payments.stripe.refund.created", map[string]any{
		"orderId":       req.OrderID,
		"paymentIntent": req.IntentID,
		"refundId":      refund.ID,
		"status":        refund.Status,
	})
	return Refund{ID: refund.ID, Status: string(refund.Status)}, nil
}

// VerifyWebhook checks the Stripe-Signature header against the endpoint secret.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if p.webhookSecret == "" {
		return WebhookEvent{}, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return WebhookEvent{ID: event.ID, Type: string(event.Type)}, nil
}
