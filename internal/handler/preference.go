package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/signalhouse/dispatch/internal/domain"
)

// PreferenceHandler handles per-user preference and device token requests
type PreferenceHandler struct {
	resolver domain.Resolver
	validate *validator.Validate
}

// NewPreferenceHandler creates a new PreferenceHandler
func NewPreferenceHandler(resolver domain.Resolver) *PreferenceHandler {
	return &PreferenceHandler{
		resolver: resolver,
		validate: validator.New(),
	}
}

// RegisterRoutes registers user preference routes
func (h *PreferenceHandler) RegisterRoutes(r chi.Router) {
	r.Put("/{userID}/preferences", h.UpdateUserPreferences)
	r.Post("/{userID}/devices", h.RegisterDevice)
	r.Delete("/{userID}/devices/{token}", h.DeactivateDevice)
}

// UpdatePreferenceRequest represents a request to update a channel preference
type UpdatePreferenceRequest struct {
	Channel   domain.Channel `json:"channel" validate:"required,oneof=EMAIL PUSH SMS" example:"PUSH"`
	IsEnabled *bool          `json:"is_enabled" validate:"required"`
}

// UpdateUserPreferences enables or disables a delivery channel for a user
// @Summary Update user preferences
// @Description Enable or disable one delivery channel for a user. A user with no stored rows receives every channel.
// @Tags preferences
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param preference body UpdatePreferenceRequest true "Preference"
// @Success 200 {object} Response{data=domain.UserPreference}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/users/{userID}/preferences [put]
func (h *PreferenceHandler) UpdateUserPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req UpdatePreferenceRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, string(domain.CodeInvalidArgument), "Validation failed", err.Error())
		return
	}

	preference, err := h.resolver.UpsertPreference(r.Context(), userID, req.Channel, *req.IsEnabled)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, preference)
}

// RegisterDeviceRequest represents a request to register a push token
type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required" example:"fcm-token-abc123"`
	Platform string `json:"platform,omitempty" example:"android"`
}

// RegisterDevice registers or reactivates a device token for push delivery
// @Summary Register device token
// @Description Register a device token for push delivery. Re-registering an existing token reactivates it.
// @Tags preferences
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param device body RegisterDeviceRequest true "Device token"
// @Success 201 {object} Response{data=domain.DeviceToken}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/users/{userID}/devices [post]
func (h *PreferenceHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req RegisterDeviceRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, string(domain.CodeInvalidArgument), "Validation failed", err.Error())
		return
	}

	token, err := h.resolver.RegisterDeviceToken(r.Context(), userID, req.Token, req.Platform)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusCreated, token)
}

// DeactivateDevice retires a device token
// @Summary Deactivate device token
// @Description Deactivate a device token so push delivery stops targeting it
// @Tags preferences
// @Produce json
// @Param userID path string true "User ID"
// @Param token path string true "Device token"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/users/{userID}/devices/{token} [delete]
func (h *PreferenceHandler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	token := chi.URLParam(r, "token")

	if err := h.resolver.DeactivateDeviceToken(r.Context(), userID, token); err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"message": "Device token deactivated",
	})
}
