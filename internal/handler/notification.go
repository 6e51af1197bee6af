package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/signalhouse/dispatch/internal/dispatcher"
	"github.com/signalhouse/dispatch/internal/domain"
)

// bulkDispatchConcurrency bounds the goroutines a single bulk request
// may fan out to.
const bulkDispatchConcurrency = 32

// Sender funnels send requests into the dispatch pipeline.
type Sender interface {
	Dispatch(ctx context.Context, req dispatcher.SendRequest) (*domain.Notification, error)
}

// BulkPublisher chunks oversized batches onto the bulk event topic.
type BulkPublisher interface {
	PublishBulk(ctx context.Context, batchID string, requests []dispatcher.SendRequest) (int, error)
}

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	sender    Sender
	store     domain.NotificationRepository
	publisher BulkPublisher
	validate  *validator.Validate
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(sender Sender, store domain.NotificationRepository, publisher BulkPublisher) *NotificationHandler {
	return &NotificationHandler{
		sender:    sender,
		store:     store,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.SendNotification)
	r.Post("/bulk", h.SendBulkNotifications)
	r.Post("/bulk/optimized", h.SendBulkNotificationsOptimized)
	r.Get("/{id}", h.GetNotificationStatus)
}

// SendNotificationRequest represents a request to dispatch a notification
// @Description Request to dispatch a notification to a user
type SendNotificationRequest struct {
	UserID      string           `json:"user_id" validate:"required" example:"user-42"`
	Type        domain.Type      `json:"type" validate:"required" example:"ORDER_SHIPPED"`
	Title       string           `json:"title" validate:"required,max=200" example:"Your order is on its way"`
	Message     string           `json:"message" validate:"required" example:"Order #1042 left the warehouse"`
	Channel     *domain.Channel  `json:"channel,omitempty" validate:"omitempty,oneof=EMAIL PUSH SMS" example:"EMAIL"`
	Priority    *domain.Priority `json:"priority,omitempty" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT" example:"HIGH"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	ScheduledAt *time.Time       `json:"scheduled_at,omitempty"`
}

func (r SendNotificationRequest) toSendRequest() dispatcher.SendRequest {
	return dispatcher.SendRequest{
		UserID:      r.UserID,
		Type:        r.Type,
		Title:       r.Title,
		Message:     r.Message,
		Channel:     r.Channel,
		Priority:    r.Priority,
		Metadata:    r.Metadata,
		ScheduledAt: r.ScheduledAt,
	}
}

// SendNotification dispatches a single notification
// @Summary Send notification
// @Description Persist a notification and queue it for delivery on the resolved channels
// @Tags notifications
// @Accept json
// @Produce json
// @Param notification body SendNotificationRequest true "Notification request"
// @Success 201 {object} Response{data=domain.Notification}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/notifications [post]
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, string(domain.CodeInvalidArgument), "Validation failed", err.Error())
		return
	}

	notification, err := h.sender.Dispatch(r.Context(), req.toSendRequest())
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]any{
		"notification_id": notification.ID,
		"status":          notification.Status,
		"notification":    notification,
		"message":         "Notification queued for delivery",
	})
}

// BulkSendRequest represents a request to dispatch multiple notifications
type BulkSendRequest struct {
	Notifications []SendNotificationRequest `json:"notifications"`
}

// BulkDispatchResult summarises a bulk dispatch
type BulkDispatchResult struct {
	Success         bool        `json:"success"`
	NotificationIDs []uuid.UUID `json:"notification_ids"`
	SuccessCount    int         `json:"success_count"`
	FailureCount    int         `json:"failure_count"`
}

// SendBulkNotifications dispatches up to 10000 notifications concurrently
// @Summary Send bulk notifications
// @Description Dispatch a batch of notifications. Items are dispatched concurrently and isolated from each other; one bad item never aborts the batch.
// @Tags notifications
// @Accept json
// @Produce json
// @Param notifications body BulkSendRequest true "Bulk request (1 to 10000 items)"
// @Success 201 {object} Response{data=BulkDispatchResult}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/notifications/bulk [post]
func (h *NotificationHandler) SendBulkNotifications(w http.ResponseWriter, r *http.Request) {
	var req BulkSendRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if len(req.Notifications) == 0 {
		HandleError(w, domain.ErrBatchEmpty)
		return
	}
	if len(req.Notifications) > domain.BulkMaxSize {
		HandleError(w, domain.ErrBatchSizeExceeded)
		return
	}

	ids := make([]*uuid.UUID, len(req.Notifications))

	var g errgroup.Group
	g.SetLimit(bulkDispatchConcurrency)
	for i, item := range req.Notifications {
		g.Go(func() error {
			notification, err := h.sender.Dispatch(r.Context(), item.toSendRequest())
			if err != nil {
				return nil // isolated: the slot stays nil and counts as a failure
			}
			ids[i] = &notification.ID
			return nil
		})
	}
	_ = g.Wait()

	result := BulkDispatchResult{NotificationIDs: make([]uuid.UUID, 0, len(ids))}
	for _, id := range ids {
		if id == nil {
			result.FailureCount++
			continue
		}
		result.NotificationIDs = append(result.NotificationIDs, *id)
		result.SuccessCount++
	}
	result.Success = result.FailureCount == 0

	JSON(w, http.StatusCreated, result)
}

// SendBulkNotificationsOptimized accepts a bulk batch for asynchronous dispatch
// @Summary Send bulk notifications via the event stream
// @Description Chunk the batch and publish it to the bulk topic instead of dispatching inline. Consumers pick the chunks up and dispatch them.
// @Tags notifications
// @Accept json
// @Produce json
// @Param notifications body BulkSendRequest true "Bulk request (1 to 10000 items)"
// @Success 202 {object} Response
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/notifications/bulk/optimized [post]
func (h *NotificationHandler) SendBulkNotificationsOptimized(w http.ResponseWriter, r *http.Request) {
	var req BulkSendRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if len(req.Notifications) == 0 {
		HandleError(w, domain.ErrBatchEmpty)
		return
	}
	if len(req.Notifications) > domain.BulkMaxSize {
		HandleError(w, domain.ErrBatchSizeExceeded)
		return
	}

	requests := make([]dispatcher.SendRequest, len(req.Notifications))
	for i, item := range req.Notifications {
		requests[i] = item.toSendRequest()
	}

	batchID := uuid.New().String()
	chunks, err := h.publisher.PublishBulk(r.Context(), batchID, requests)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, map[string]any{
		"batch_id":            batchID,
		"total_notifications": len(requests),
		"chunks":              chunks,
		"message":             "Batch accepted for asynchronous dispatch",
	})
}

// GetNotificationStatus retrieves a notification by ID
// @Summary Get notification status
// @Description Get a notification and its delivery status by ID
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} Response{data=domain.Notification}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/v1/notifications/{id} [get]
func (h *NotificationHandler) GetNotificationStatus(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID", nil)
		return
	}

	notification, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, notification)
}
