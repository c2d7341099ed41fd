package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/studyhall/shell/internal/eventbus"
	"github.com/studyhall/shell/internal/navigation"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthChecker reports on the components the guard depends on.
type HealthChecker struct {
	routes    navigation.TableSource
	bus       *eventbus.Bus
	version   string
	gitCommit string
}

func NewHealthChecker(routes navigation.TableSource, bus *eventbus.Bus, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		routes:    routes,
		bus:       bus,
		version:   version,
		gitCommit: gitCommit,
	}
}

// Health returns a detailed health report. Any failing check makes the
// server unhealthy; warnings degrade it.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		default:
		}

		checks := map[string]CheckResult{
			"routes":    h.checkRoutes(),
			"event_bus": h.checkEventBus(),
		}

		overallStatus := "healthy"
		statusCode := http.StatusOK
		for _, check := range checks {
			if check.Status == "fail" {
				overallStatus = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				break
			} else if check.Status == "warn" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, statusCode, HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (h *HealthChecker) checkRoutes() CheckResult {
	if h.routes == nil || h.routes.Table() == nil {
		return CheckResult{Status: "fail", Message: "Route table not loaded"}
	}
	table := h.routes.Table()
	details := map[string]any{"routes": table.Len()}
	if r, ok := h.routes.(*navigation.Reloader); ok && r.Path() != "" {
		details["file"] = r.Path()
	}
	return CheckResult{Status: "pass", Message: "Route table loaded", Details: details}
}

func (h *HealthChecker) checkEventBus() CheckResult {
	if h.bus == nil {
		return CheckResult{Status: "warn", Message: "Event bus not configured"}
	}
	details := make(map[string]any)
	for _, event := range []string{
		navigation.EventNavigationAllowed,
		navigation.EventNavigationRedirected,
		navigation.EventCredentialPurged,
		navigation.EventRoutesReloaded,
		navigation.EventRoutesReloadFailed,
	} {
		details[event] = h.bus.ListenerCount(event)
	}
	return CheckResult{Status: "pass", Message: "Event bus running", Details: details}
}

// Healthz returns a lightweight liveness response.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz reports ready once a route table is available.
func Readyz(routes navigation.TableSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routes == nil || routes.Table() == nil {
			respondHealth(w, http.StatusServiceUnavailable, "not_ready")
			return
		}
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	writeJSON(w, status, healthResponse{Status: value})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
