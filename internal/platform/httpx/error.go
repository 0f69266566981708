package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/AmolSonawane1026/order-service/internal/platform/requestctx"
)

// Error is a client-facing failure: an HTTP status plus the message placed in
// the {success:false, message} envelope.
type Error struct {
	Status  int
	Message string
	// PlainText writes the message as text/plain instead of the JSON envelope.
	PlainText bool
}

// NewError constructs an Error, defaulting the status to 500.
func NewError(status int, message string) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Status: status, Message: sanitize(message, 512)}
}

func (e Error) Error() string { return e.Message }

// Common failures shared across handlers.
var (
	ErrInternal = NewError(http.StatusInternalServerError, "Internal server error")
)

type errorEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

// WriteError serialises err, adding the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if err.PlainText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(err.Message))
		return
	}

	WriteJSON(w, status, errorEnvelope{
		Success:   false,
		Message:   err.Message,
		RequestID: sanitize(middleware.GetReqID(ctx), 80),
		TraceID:   sanitize(requestctx.TraceID(ctx), 64),
	})
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	value = strings.NewReplacer("\n", " ", "\r", " ").Replace(value)
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
