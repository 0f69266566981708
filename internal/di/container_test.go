package di

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/platform/config"
	"github.com/AmolSonawane1026/order-service/internal/platform/events"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

type stubRegistry struct {
	pingErr error
	closed  bool
}

type stubOrders struct{ repositories.OrderRepository }

type stubCounters struct{ repositories.CounterRepository }

func (r *stubRegistry) Orders() repositories.OrderRepository     { return stubOrders{} }
func (r *stubRegistry) Counters() repositories.CounterRepository { return stubCounters{} }
func (r *stubRegistry) Ping(context.Context) error               { return r.pingErr }
func (r *stubRegistry) Close(context.Context) error {
	r.closed = true
	return nil
}

type stubPublisher struct{ closed bool }

func (p *stubPublisher) Publish(context.Context, domain.OrderEvent) error { return nil }
func (p *stubPublisher) Close() error {
	p.closed = true
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: "5003", ShutdownTimeout: time.Second},
		Service: config.ServiceConfig{
			Name:        "order-service",
			Version:     "1.0.0",
			Environment: "test",
			FrontendURL: "https://shop.example.com",
			Location:    time.UTC,
		},
		Catalog: config.UpstreamConfig{BaseURL: "http://catalog.invalid", Timeout: time.Second},
		Mailer:  config.UpstreamConfig{BaseURL: "http://mailer.invalid", Timeout: time.Second},
		Auth:    config.AuthConfig{JWTSecret: "test-secret"},
		Events:  config.EventsConfig{Backend: config.EventsBackendNone},
	}
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNewContainerWiresRouter(t *testing.T) {
	reg := &stubRegistry{}
	c, err := NewContainer(context.Background(), testConfig(), WithRegistry(reg))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if c.Services.Orders == nil || c.Services.System == nil {
		t.Fatalf("expected services to be wired")
	}
	if got := c.Services.System.Build().Service; got != "order-service" {
		t.Fatalf("expected build service name, got %q", got)
	}

	if rec := serve(t, c.Handler, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(t, c.Handler, http.MethodGet, "/api/orders/my-orders"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("my-orders: expected 401, got %d", rec.Code)
	}

	rec := serve(t, c.Handler, http.MethodPost, "/api/orders/webhook/stripe")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("webhook: expected 400, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "Webhook Error:") {
		t.Fatalf("webhook: unexpected body %q", rec.Body.String())
	}
}

func TestNewContainerReadinessFollowsStore(t *testing.T) {
	reg := &stubRegistry{pingErr: errors.New("connection refused")}
	c, err := NewContainer(context.Background(), testConfig(), WithRegistry(reg))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	if rec := serve(t, c.Handler, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestNewContainerReleasesOnFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Events.Backend = "carrier-pigeon"
	reg := &stubRegistry{}

	if _, err := NewContainer(context.Background(), cfg, WithRegistry(reg)); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	if !reg.closed {
		t.Fatalf("expected registry to be closed after failed wiring")
	}
}

func TestContainerClose(t *testing.T) {
	reg := &stubRegistry{}
	pub := &stubPublisher{}
	c, err := NewContainer(context.Background(), testConfig(), WithRegistry(reg), WithPublisher(pub))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !reg.closed || !pub.closed {
		t.Fatalf("expected registry and publisher closed, got registry=%v publisher=%v", reg.closed, pub.closed)
	}
}

func TestNewPublisherSelectsBackend(t *testing.T) {
	pub, err := newPublisher(context.Background(), config.EventsConfig{
		Backend: config.EventsBackendKafka,
		Kafka:   config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "order-events"},
	})
	if err != nil {
		t.Fatalf("newPublisher: %v", err)
	}
	defer pub.Close()
	if _, ok := pub.(*events.KafkaPublisher); !ok {
		t.Fatalf("unexpected publisher %T", pub)
	}
}
