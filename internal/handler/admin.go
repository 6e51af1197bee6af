package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Retrier runs a retry scan over failed notifications.
type Retrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// AdminHandler handles operational admin requests
type AdminHandler struct {
	retrier Retrier
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(retrier Retrier) *AdminHandler {
	return &AdminHandler{retrier: retrier}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/retry-failed", h.RetryFailed)
}

// RetryFailed re-queues failed notifications with retry budget left
// @Summary Retry failed notifications
// @Description Scan for failed notifications under the retry limit and queue them again under their original IDs
// @Tags admin
// @Produce json
// @Success 200 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/admin/retry-failed [post]
func (h *AdminHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	retried, err := h.retrier.RetryFailed(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"retried": retried,
		"message": "Retry scan completed",
	})
}
