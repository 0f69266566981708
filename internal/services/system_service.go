package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/AmolSonawane1026/order-service/internal/domain"
	"github.com/AmolSonawane1026/order-service/internal/repositories"
)

// BuildInfo identifies the running binary on the health endpoints.
type BuildInfo struct {
	Service     string
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	healthRepo repositories.HealthRepository
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the service behind the health and readiness endpoints.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	return &systemService{
		healthRepo: deps.HealthRepository,
		clock:      func() time.Time { return clock().UTC() },
		build:      build,
	}, nil
}

func (s *systemService) Build() BuildInfo { return s.build }

// HealthReport runs the dependency probes and stamps the result with this
// process's build metadata.
func (s *systemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return domain.SystemHealthReport{}, fmt.Errorf("collect health: %w", err)
	}
	s.annotate(&report, s.clock())
	return report, nil
}

// annotate fills what the probes leave blank. Probe-supplied values win.
func (s *systemService) annotate(r *domain.SystemHealthReport, now time.Time) {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = now
	}
	if strings.TrimSpace(r.Version) == "" {
		r.Version = s.build.Version
	}
	if strings.TrimSpace(r.CommitSHA) == "" {
		r.CommitSHA = s.build.CommitSHA
	}
	if strings.TrimSpace(r.Environment) == "" {
		r.Environment = s.build.Environment
	}
	if r.Uptime <= 0 {
		r.Uptime = now.Sub(s.build.StartedAt)
	}
	if r.Checks == nil {
		r.Checks = map[string]domain.SystemHealthCheck{}
	}
	if strings.TrimSpace(r.Status) == "" {
		r.Status = worstStatus(r.Checks)
	}
}

var statusRank = map[string]int{
	domain.HealthStatusOK:       0,
	domain.HealthStatusDegraded: 1,
	domain.HealthStatusError:    2,
}

func worstStatus(checks map[string]domain.SystemHealthCheck) string {
	worst := domain.HealthStatusOK
	for _, check := range checks {
		if statusRank[check.Status] > statusRank[worst] {
			worst = check.Status
		}
	}
	return worst
}
