package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/progress2win/apiserver/internal/services"
)

// CompareHandler provides friend comparison and leaderboard endpoints.
type CompareHandler struct {
	compareService *services.CompareService
}

func NewCompareHandler(compareService *services.CompareService) *CompareHandler {
	return &CompareHandler{compareService: compareService}
}

// CompareRouter registers comparison routes on the given router. All
// routes require authentication.
func CompareRouter(r chi.Router, compareService *services.CompareService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewCompareHandler(compareService)

	r.Use(authMiddleware)
	r.Get("/user/{friendID}", handler.CompareWithFriend)
	r.Post("/invite", handler.InviteFriend)
	r.Get("/friends", handler.ListFriends)
	r.Post("/accept/{friendshipID}", handler.AcceptInvitation)
	r.Get("/leaderboard", handler.Leaderboard)
}

// CompareWithFriend returns both sides of a progress comparison.
// Requires an accepted friendship with the target user.
func (h *CompareHandler) CompareWithFriend(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friendID, err := parseIDParam(r, "friendID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := parseProgressFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comparison, err := h.compareService.Compare(r.Context(), userID, friendID, filter)
	if err != nil {
		writeServiceError(w, err, "failed to compare progress")
		return
	}

	writeJSON(w, http.StatusOK, comparison)
}

func (h *CompareHandler) InviteFriend(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req InviteFriendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	friendship, err := h.compareService.Invite(r.Context(), userID, req.Email)
	if err != nil {
		writeServiceError(w, err, "failed to send invitation")
		return
	}

	writeJSON(w, http.StatusCreated, friendship)
}

func (h *CompareHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friends, err := h.compareService.Friends(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to list friends")
		return
	}

	writeJSON(w, http.StatusOK, friends)
}

// AcceptInvitation accepts a pending invitation addressed to the
// caller.
func (h *CompareHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friendshipID, err := parseIDParam(r, "friendshipID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.compareService.Accept(r.Context(), friendshipID, userID); err != nil {
		writeServiceError(w, err, "failed to accept invitation")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "invitation accepted"})
}

func (h *CompareHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProgressFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	entries, err := h.compareService.Leaderboard(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

type InviteFriendRequest struct {
	Email string `json:"email"`
}
