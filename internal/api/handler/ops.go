package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/airwatch/airwatch/internal/api/models"
	"github.com/airwatch/airwatch/internal/api/response"
	"github.com/airwatch/airwatch/internal/provider/resilience"
)

// Check is a named dependency check run by the readiness endpoint.
type Check struct {
	Name string
	Func func(ctx context.Context) error
}

// OpsConfig configures the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports provider circuit breaker health. Optional.
	Registry *resilience.Registry

	// Checks run on readiness and status requests.
	Checks []Check

	// CheckTimeout bounds each check (default: 2s).
	CheckTimeout time.Duration

	// Details adds informational subsystem lines to the status endpoint.
	Details func() map[string]string
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when any dependency
// check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK

	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
			if health.Details == nil {
				health.Details = make(map[string]interface{})
			}
			health.Details[s.Name] = *s.Detail
			status = http.StatusServiceUnavailable
		}
	}

	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.cfg.Version,
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providerStatuses(),
	}

	if h.cfg.Details != nil {
		details := h.cfg.Details()
		names := make([]string, 0, len(details))
		for name := range details {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			detail := details[name]
			status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
				Name:   name,
				Status: models.HealthStatusOK,
				Detail: &detail,
			})
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worse(status.Status, s.Status)
	}
	if h.cfg.Registry != nil {
		status.Status = worse(status.Status, registryStatus(h.cfg.Registry.Status()))
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.cfg.Checks))
	for _, c := range h.cfg.Checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.cfg.CheckTimeout)
		err := c.Func(checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	health := h.cfg.Registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(health))
	for _, ph := range health {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		}
		switch {
		case ph.IsUnhealthy():
			ps.Status = models.HealthStatusFail
		case ph.IsDegraded():
			ps.Status = models.HealthStatusDegraded
		}
		if ph.LastSuccessAt != nil {
			ts := models.Timestamp(*ph.LastSuccessAt)
			ps.LastSuccessAt = &ts
		}
		if ph.LastFailureAt != nil {
			ts := models.Timestamp(*ph.LastFailureAt)
			ps.LastFailureAt = &ts
		}
		if ph.LastError != "" {
			msg := fmt.Sprintf("last error: %s", ph.LastError)
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

func registryStatus(s string) models.HealthStatus {
	switch s {
	case resilience.StatusUnhealthy:
		return models.HealthStatusFail
	case resilience.StatusDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

// worse returns the more severe of two statuses.
func worse(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
