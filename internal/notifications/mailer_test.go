package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSendPostsEmailAndSurvivesCancelledRequest(t *testing.T) {
	received := make(chan Email, 1)
	var requestID atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/email/send" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		requestID.Store(r.Header.Get("X-Request-ID"))
		var email Email
		if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- email
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	mailer, err := NewMailer(server.URL, time.Second)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	mailer.Send(ctx, Email{
		To:       "asha@example.com",
		Subject:  "Order Confirmation - ORD2410150001",
		Template: TemplateOrderConfirmation,
		Data:     map[string]any{"customerName": "Asha"},
	})
	cancel()

	drainCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	if err := mailer.Drain(drainCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	select {
	case email := <-received:
		if email.To != "asha@example.com" || email.Template != TemplateOrderConfirmation {
			t.Fatalf("unexpected email %+v", email)
		}
	default:
		t.Fatalf("email was not delivered")
	}
	if id, _ := requestID.Load().(string); id == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestSendFailureIsLoggedAndReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	var failures atomic.Int32
	mailer, err := NewMailer(server.URL, time.Second,
		WithLogger(zap.New(core)),
		WithFailureHook(func(context.Context, string) { failures.Add(1) }),
	)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	mailer.Send(context.Background(), Email{To: "a@example.com", Template: TemplateOrderStatusUpdate})
	if err := mailer.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if failures.Load() != 1 {
		t.Fatalf("expected one failure, got %d", failures.Load())
	}
	if logs.FilterMessage("email delivery failed").Len() != 1 {
		t.Fatalf("expected failure log")
	}
}

func TestSendSkipsEmptyRecipient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	mailer, _ := NewMailer(server.URL, time.Second)
	mailer.Send(context.Background(), Email{Template: TemplateOrderConfirmation})
	_ = mailer.Drain(context.Background())
	if calls.Load() != 0 {
		t.Fatalf("expected no request for empty recipient")
	}
}
