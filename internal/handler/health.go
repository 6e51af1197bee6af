package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/signalhouse/dispatch/internal/metrics"
)

// HealthChecker defines an interface for health checking
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	collector *metrics.Collector
	checkers  map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(collector *metrics.Collector) *HealthHandler {
	return &HealthHandler{
		collector: collector,
		checkers:  make(map[string]HealthChecker),
	}
}

// AddChecker adds a health checker
func (h *HealthHandler) AddChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status              string                     `json:"status"`
	Timestamp           time.Time                  `json:"timestamp"`
	QueueDepth          int64                      `json:"queue_depth"`
	ActiveWorkers       int64                      `json:"active_workers"`
	ThroughputPerSecond float64                    `json:"throughput_per_second"`
	ErrorRate           float64                    `json:"error_rate"`
	Components          map[string]ComponentStatus `json:"components,omitempty"`
}

// ComponentStatus represents a component's health status
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthCheck reports pipeline health
// @Summary Health check
// @Description Check the health of the dispatch pipeline and its dependencies. Unhealthy when the error rate, queue depth or worker count is out of bounds, or a dependency is down.
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /healthz [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := h.collector.CheckHealth(ctx)

	status := HealthStatus{
		Status:              "healthy",
		Timestamp:           time.Now().UTC(),
		QueueDepth:          health.QueueDepth,
		ActiveWorkers:       health.ActiveWorkers,
		ThroughputPerSecond: health.Throughput,
		ErrorRate:           health.ErrorRate,
		Components:          make(map[string]ComponentStatus),
	}

	allHealthy := health.Healthy

	for name, checker := range h.checkers {
		componentStatus := ComponentStatus{Status: "healthy"}

		if err := checker.Health(ctx); err != nil {
			componentStatus.Status = "unhealthy"
			componentStatus.Message = err.Error()
			allHealthy = false
		}

		status.Components[name] = componentStatus
	}

	code := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}

// Liveness handles liveness probe requests
// @Summary Liveness probe
// @Description Simple liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz/live [get]
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// Readiness handles readiness probe requests
// @Summary Readiness probe
// @Description Check if the service is ready to accept traffic
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz/ready [get]
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, checker := range h.checkers {
		if err := checker.Health(ctx); err != nil {
			JSONError(w, http.StatusServiceUnavailable, "NOT_READY", "Component not ready", map[string]string{
				"component": name,
				"error":     err.Error(),
			})
			return
		}
	}

	JSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
