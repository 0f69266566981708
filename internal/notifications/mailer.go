// Package notifications delivers transactional email through the mailer service.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	TemplateOrderConfirmation = "orderConfirmation"
	TemplateOrderStatusUpdate = "orderStatusUpdate"

	defaultTimeout = 10 * time.Second
)

// Email is one templated message. Data is rendered by the mailer service.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Template string `json:"template"`
	Data     any    `json:"data"`
}

// HTTPClient matches the subset of http.Client used by Mailer.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Mailer posts emails to {base}/api/email/send. Send never blocks the caller and
// never reports failure; Deliver is the synchronous form.
type Mailer struct {
	endpoint  string
	client    HTTPClient
	timeout   time.Duration
	logger    *zap.Logger
	onFailure func(ctx context.Context, template string)
	inflight  sync.WaitGroup
}

// Option customises a Mailer.
type Option func(*Mailer)

func WithHTTPClient(client HTTPClient) Option {
	return func(m *Mailer) {
		if client != nil {
			m.client = client
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFailureHook is called once for every email that could not be delivered.
func WithFailureHook(fn func(ctx context.Context, template string)) Option {
	return func(m *Mailer) {
		m.onFailure = fn
	}
}

func NewMailer(baseURL string, timeout time.Duration, opts ...Option) (*Mailer, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("notifications: mailer base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("notifications: parse base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	m := &Mailer{
		endpoint: base.JoinPath("api", "email", "send").String(),
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:  timeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Send delivers email on a background goroutine. The request context's
// cancellation is dropped so the send outlives the HTTP response.
func (m *Mailer) Send(ctx context.Context, email Email) {
	if strings.TrimSpace(email.To) == "" {
		m.logger.Warn("email skipped: no recipient", zap.String("template", email.Template))
		return
	}
	detached := context.WithoutCancel(ctx)
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		sendCtx, cancel := context.WithTimeout(detached, m.timeout)
		defer cancel()
		if err := m.Deliver(sendCtx, email); err != nil {
			m.logger.Warn("email delivery failed",
				zap.String("template", email.Template),
				zap.String("subject", email.Subject),
				zap.Error(err),
			)
			if m.onFailure != nil {
				m.onFailure(detached, email.Template)
			}
			return
		}
		m.logger.Debug("email sent", zap.String("template", email.Template))
	}()
}

// Deliver posts the email and waits for the mailer's answer.
func (m *Mailer) Deliver(ctx context.Context, email Email) error {
	body, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("notifications: encode email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notifications: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("notifications: send %s: %w", email.Template, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notifications: send %s: status %d: %s", email.Template, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Drain waits for in-flight sends or until ctx is done.
func (m *Mailer) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
