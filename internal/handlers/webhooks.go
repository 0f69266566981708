package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AmolSonawane1026/order-service/internal/payments"
	"github.com/AmolSonawane1026/order-service/internal/platform/httpx"
	"github.com/AmolSonawane1026/order-service/internal/platform/observability"
)

const maxWebhookBodySize = 64 * 1024

// WebhookHandlers receives Stripe callbacks. Events are verified and logged;
// order state is not changed here.
type WebhookHandlers struct {
	verifier payments.WebhookVerifier
}

// NewWebhookHandlers constructs webhook handlers backed by verifier.
func NewWebhookHandlers(verifier payments.WebhookVerifier) *WebhookHandlers {
	return &WebhookHandlers{verifier: verifier}
}

// Routes registers the webhook endpoints relative to /api/orders.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/webhook/stripe", h.stripe)
}

func (h *WebhookHandlers) stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		writeWebhookError(w, r, "unable to read body")
		return
	}
	if h.verifier == nil {
		writeWebhookError(w, r, "webhook verification not configured")
		return
	}

	event, err := h.verifier.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		observability.FromContext(ctx).Warn("stripe webhook rejected", zap.Error(err))
		writeWebhookError(w, r, err.Error())
		return
	}

	observability.FromContext(ctx).Info("stripe webhook received",
		zap.String("eventId", event.ID),
		zap.String("eventType", event.Type),
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func writeWebhookError(w http.ResponseWriter, r *http.Request, message string) {
	err := httpx.NewError(http.StatusBadRequest, "Webhook Error: "+message)
	err.PlainText = true
	httpx.WriteError(r.Context(), w, err)
}
