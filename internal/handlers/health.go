package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/platform/httpx"
	"github.com/AmolSonawane1026/order-service/internal/services"
)

const serviceName = "order-service"

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService enables dependency probes on /readyz.
func WithHealthSystemService(svc services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = svc
		if svc != nil && h.build == (services.BuildInfo{}) {
			h.build = svc.Build()
		}
	}
}

// WithHealthBuildInfo overrides the build metadata reported by the handlers.
func WithHealthBuildInfo(info services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock replaces the clock used for uptime and timestamps.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs the health endpoints.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	if h.build.Service == "" {
		h.build.Service = serviceName
	}
	return h
}

type livenessResponse struct {
	Success     bool      `json:"success"`
	Service     string    `json:"service"`
	Status      string    `json:"status"`
	Version     string    `json:"version,omitempty"`
	CommitSHA   string    `json:"commitSha,omitempty"`
	Environment string    `json:"environment,omitempty"`
	Uptime      string    `json:"uptime"`
	Database    string    `json:"database,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type readinessCheck struct {
	Status    string     `json:"status"`
	Detail    string     `json:"detail,omitempty"`
	Error     string     `json:"error,omitempty"`
	LatencyMS int64      `json:"latencyMs"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
}

type readinessResponse struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version,omitempty"`
	CommitSHA   string                    `json:"commitSha,omitempty"`
	Environment string                    `json:"environment,omitempty"`
	Uptime      string                    `json:"uptime"`
	Checks      map[string]readinessCheck `json:"checks"`
	Details     []string                  `json:"details,omitempty"`
	Timestamp   time.Time                 `json:"timestamp"`
}

// Index describes the service and its main endpoints.
func (h *HealthHandlers) Index(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order Service API",
		"version": h.build.Version,
		"endpoints": map[string]string{
			"health":        "/health",
			"createOrder":   "POST /api/orders",
			"myOrders":      "GET /api/orders/my-orders",
			"orderDetails":  "GET /api/orders/:id",
			"cancelOrder":   "PATCH /api/orders/:id/cancel",
			"stripeWebhook": "POST /api/orders/webhook/stripe",
		},
	})
}

// Health reports liveness along with the store connection state when probes are configured.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.liveness()
	resp.Status = "healthy"
	if h.system != nil {
		resp.Database = "connected"
		report, err := h.system.HealthReport(r.Context())
		if err != nil || report.Status == domain.HealthStatusError {
			resp.Database = "disconnected"
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Healthz is the process liveness probe; it never touches dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.liveness())
}

// Readyz runs dependency probes and answers 503 unless every probe is ok.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	if h.system == nil {
		httpx.WriteJSON(w, http.StatusOK, readinessResponse{
			Status:      domain.HealthStatusOK,
			Version:     h.build.Version,
			CommitSHA:   h.build.CommitSHA,
			Environment: h.build.Environment,
			Uptime:      h.uptime(now).String(),
			Checks:      map[string]readinessCheck{},
			Timestamp:   now,
		})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, readinessResponse{
			Status:    domain.HealthStatusError,
			Uptime:    h.uptime(now).String(),
			Checks:    map[string]readinessCheck{},
			Details:   []string{err.Error()},
			Timestamp: now,
		})
		return
	}

	checks := make(map[string]readinessCheck, len(report.Checks))
	names := make([]string, 0, len(report.Checks))
	for name, check := range report.Checks {
		names = append(names, name)
		entry := readinessCheck{
			Status:    check.Status,
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
		}
		if !check.CheckedAt.IsZero() {
			checkedAt := check.CheckedAt.UTC()
			entry.CheckedAt = &checkedAt
		}
		checks[name] = entry
	}
	sort.Strings(names)

	var details []string
	for _, name := range names {
		check := report.Checks[name]
		if check.Status == domain.HealthStatusOK {
			continue
		}
		reason := check.Error
		if reason == "" {
			reason = check.Detail
		}
		if reason == "" {
			reason = check.Status
		}
		details = append(details, fmt.Sprintf("%s: %s", name, reason))
	}

	uptime := report.Uptime
	if uptime <= 0 {
		uptime = h.uptime(now)
	}
	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, readinessResponse{
		Status:      report.Status,
		Version:     firstNonEmpty(report.Version, h.build.Version),
		CommitSHA:   firstNonEmpty(report.CommitSHA, h.build.CommitSHA),
		Environment: firstNonEmpty(report.Environment, h.build.Environment),
		Uptime:      uptime.String(),
		Checks:      checks,
		Details:     details,
		Timestamp:   now,
	})
}

func (h *HealthHandlers) liveness() livenessResponse {
	now := h.clock().UTC()
	return livenessResponse{
		Success:     true,
		Service:     h.build.Service,
		Status:      domain.HealthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      h.uptime(now).String(),
		Timestamp:   now,
	}
}

func (h *HealthHandlers) uptime(now time.Time) time.Duration {
	if h.build.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(h.build.StartedAt).Round(time.Second)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
