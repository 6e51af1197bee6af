package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/signalhouse/dispatch/internal/domain"
)

// TemplateInvalidator drops cached templates after admin writes.
type TemplateInvalidator interface {
	InvalidateTemplate(typ domain.Type, channel domain.Channel)
}

// TemplateHandler handles template HTTP requests
type TemplateHandler struct {
	repo        domain.TemplateRepository
	invalidator TemplateInvalidator
	validate    *validator.Validate
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(repo domain.TemplateRepository, invalidator TemplateInvalidator) *TemplateHandler {
	return &TemplateHandler{
		repo:        repo,
		invalidator: invalidator,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers template routes
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/render", h.Render)
}

// CreateTemplateRequest represents a request to create a template
type CreateTemplateRequest struct {
	Type        domain.Type    `json:"type" validate:"required" example:"ORDER_SHIPPED"`
	Channel     domain.Channel `json:"channel" validate:"required,oneof=EMAIL PUSH SMS" example:"EMAIL"`
	Title       string         `json:"title" validate:"required,max=200" example:"Order {{orderId}} shipped"`
	Message     string         `json:"message" validate:"required" example:"Hi {{userName}}, your order is on its way."`
	HTMLContent *string        `json:"html_content,omitempty"`
}

// Create creates a new active template
// @Summary Create template
// @Description Create the active template for a (type, channel) pair. At most one active template may exist per pair.
// @Tags templates
// @Accept json
// @Produce json
// @Param template body CreateTemplateRequest true "Template request"
// @Success 201 {object} Response{data=domain.Template}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/templates [post]
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, string(domain.CodeInvalidArgument), "Validation failed", err.Error())
		return
	}

	template := domain.NewTemplate(req.Type, req.Channel, req.Title, req.Message)
	template.HTMLContent = req.HTMLContent

	if err := h.repo.Create(r.Context(), template); err != nil {
		HandleError(w, err)
		return
	}
	h.invalidator.InvalidateTemplate(template.Type, template.Channel)

	JSON(w, http.StatusCreated, template)
}

// List retrieves all templates
// @Summary List templates
// @Description Get all templates ordered by type and channel
// @Tags templates
// @Produce json
// @Success 200 {object} Response{data=[]domain.Template}
// @Failure 500 {object} Response
// @Router /api/v1/templates [get]
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repo.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, templates)
}

// GetByID retrieves a template by ID
// @Summary Get template by ID
// @Description Get a template by its ID
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response{data=domain.Template}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/templates/{id} [get]
func (h *TemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid template ID", nil)
		return
	}

	template, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, template)
}

// UpdateTemplateRequest represents a request to update a template
type UpdateTemplateRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Message     *string `json:"message,omitempty"`
	HTMLContent *string `json:"html_content,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Update updates a template
// @Summary Update template
// @Description Update template content or toggle its active flag. The cached copy is dropped so workers pick the change up.
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body UpdateTemplateRequest true "Update request"
// @Success 200 {object} Response{data=domain.Template}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/templates/{id} [put]
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid template ID", nil)
		return
	}

	var req UpdateTemplateRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, string(domain.CodeInvalidArgument), "Validation failed", err.Error())
		return
	}

	template, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	if req.Title != nil {
		template.Title = *req.Title
	}
	if req.Message != nil {
		template.Message = *req.Message
	}
	if req.HTMLContent != nil {
		template.HTMLContent = req.HTMLContent
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if err := h.repo.Update(r.Context(), template); err != nil {
		HandleError(w, err)
		return
	}
	h.invalidator.InvalidateTemplate(template.Type, template.Channel)

	JSON(w, http.StatusOK, template)
}

// Delete deletes a template
// @Summary Delete template
// @Description Delete a template and drop its cached copy
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/templates/{id} [delete]
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid template ID", nil)
		return
	}

	template, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		HandleError(w, err)
		return
	}
	h.invalidator.InvalidateTemplate(template.Type, template.Channel)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Template deleted successfully",
	})
}

// RenderRequest represents a request to preview a rendered template
type RenderRequest struct {
	Variables map[string]any `json:"variables"`
}

// Render previews a template rendered with the given variables
// @Summary Render template
// @Description Render a template with the provided variables. Unknown tokens stay in place.
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body RenderRequest true "Variables"
// @Success 200 {object} Response{data=domain.RenderedContent}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/templates/{id}/render [post]
func (h *TemplateHandler) Render(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid template ID", nil)
		return
	}

	var req RenderRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	template, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, template.Render(req.Variables))
}
