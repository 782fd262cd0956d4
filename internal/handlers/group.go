package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/progress2win/apiserver/internal/services"
)

// GroupHandler provides accountability group endpoints.
type GroupHandler struct {
	groupService *services.GroupService
}

func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// GroupRouter registers group routes on the given router. All routes
// require authentication.
func GroupRouter(r chi.Router, groupService *services.GroupService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewGroupHandler(groupService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateGroup)
	r.Post("/join", handler.JoinGroup)
	r.Get("/mine", handler.MyGroup)
	r.Route("/{groupID}", func(r chi.Router) {
		r.Get("/", handler.GetGroup)
		r.Get("/progress", handler.GroupProgress)
		r.Post("/leave", handler.LeaveGroup)
	})
}

func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GroupCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	group, err := h.groupService.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, err, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// JoinGroup enrolls the caller using an invite code.
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GroupJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	group, err := h.groupService.Join(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, err, "failed to join group")
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) MyGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	group, err := h.groupService.MyGroup(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to load group")
		return
	}

	writeJSON(w, http.StatusOK, group)
}

func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "groupID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := h.groupService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch group")
		return
	}

	writeJSON(w, http.StatusOK, group)
}

// GroupProgress returns the recent progress feed across group members.
func (h *GroupHandler) GroupProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "groupID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.groupService.Progress(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, err, "failed to load group progress")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "groupID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.groupService.Leave(r.Context(), id, userID); err != nil {
		writeServiceError(w, err, "failed to leave group")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "left group"})
}

type GroupCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type GroupJoinRequest struct {
	Code string `json:"code"`
}
