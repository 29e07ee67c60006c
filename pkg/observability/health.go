package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// Pinger is implemented by the artifact journal
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	journal     Pinger
	projectRoot string
	version     string
}

// NewHealthChecker creates a new health checker. A nil journal is reported
// as disabled rather than unhealthy.
func NewHealthChecker(journal Pinger, projectRoot, version string) *HealthChecker {
	return &HealthChecker{
		journal:     journal,
		projectRoot: projectRoot,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness checks the journal and the project root
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	project := h.checkProjectRoot()
	status.Dependencies["project"] = project
	if project.Status == StatusUnhealthy {
		status.Status = StatusUnhealthy
	}

	if h.journal == nil {
		status.Dependencies["journal"] = DependencyStatus{Status: StatusDisabled, Timestamp: time.Now()}
		return status
	}

	journal := h.checkJournal(ctx)
	status.Dependencies["journal"] = journal
	if journal.Status == StatusUnhealthy && status.Status != StatusUnhealthy {
		// generation still works without the journal, it just rewrites everything
		status.Status = StatusDegraded
	}

	return status
}

func (h *HealthChecker) checkJournal(ctx context.Context) DependencyStatus {
	start := time.Now()
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: start,
	}

	err := h.journal.Ping(ctx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	}
	return status
}

func (h *HealthChecker) checkProjectRoot() DependencyStatus {
	status := DependencyStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	info, err := os.Stat(h.projectRoot)
	switch {
	case err != nil:
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	case !info.IsDir():
		status.Status = StatusUnhealthy
		status.Message = "project root is not a directory"
	}
	return status
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
