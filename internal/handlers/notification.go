package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/progress2win/apiserver/internal/services"
	"github.com/progress2win/apiserver/types"
)

// NotificationHandler provides notification endpoints.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationRouter registers notification routes on the given
// router. All routes require authentication.
func NotificationRouter(r chi.Router, notificationService *services.NotificationService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewNotificationHandler(notificationService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListNotifications)
	r.Post("/", handler.CreateNotification)
	r.Put("/{notificationID}/read", handler.MarkRead)
	r.Delete("/{notificationID}", handler.DeleteNotification)
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	unreadOnly := strings.EqualFold(r.URL.Query().Get("unread"), "true")

	items, err := h.notificationService.List(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		writeServiceError(w, err, "failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
	})
}

// CreateNotification stores a notification addressed to the caller,
// such as a self-reminder.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req NotificationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	notification, err := h.notificationService.Create(r.Context(), types.Notification{
		UserID:  userID,
		Title:   strings.TrimSpace(req.Title),
		Message: strings.TrimSpace(req.Message),
		Type:    req.Type,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), userID, id); err != nil {
		writeServiceError(w, err, "failed to mark notification read")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "notification read"})
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err, "failed to delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type NotificationCreateRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NotificationListResponse is the paginated list response payload.
type NotificationListResponse struct {
	Items []types.Notification `json:"items"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
