package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/healthscope/symptom-checker/backend/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// DBChecker verifies database connectivity
type DBChecker interface {
	HealthCheck(ctx context.Context) error
}

// AvailabilityChecker reports whether an external backend is reachable
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context) bool
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db       DBChecker
	store    AvailabilityChecker
	provider AvailabilityChecker
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Any dependency may be nil, in
// which case its check is skipped.
func NewHealthHandler(db DBChecker, store, provider AvailabilityChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available. Only the
// database gates readiness; the vector store and the model provider degrade
// gracefully, so they are reported but never fail the check.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.store != nil {
		if h.store.IsAvailable(ctx) {
			checks["vector_store"] = "healthy"
		} else {
			checks["vector_store"] = "unavailable"
		}
	}

	if h.provider != nil {
		if h.provider.IsAvailable(ctx) {
			checks["model_provider"] = "healthy"
		} else {
			checks["model_provider"] = "unavailable"
		}
	}

	// Determine overall status
	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
