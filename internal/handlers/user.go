package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/progress2win/apiserver/internal/services"
)

const (
	maxAvatarMemory = 8 << 20
	maxAvatarBytes  = 5 << 20
	formFieldAvatar = "avatar"
)

var allowedAvatarExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UserHandler provides profile endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers profile routes on the given router. All routes
// require authentication.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
		r.Post("/avatar", handler.UploadAvatar)
		r.Get("/avatar", handler.GetAvatar)
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownResource(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Update(r.Context(), id, services.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
		Goals:     req.Goals,
	})
	if err != nil {
		writeServiceError(w, err, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownResource(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadAvatar accepts a multipart image upload and stores it as the
// user's avatar.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := h.ownResource(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxAvatarMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldAvatar)
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarBytes {
		writeError(w, http.StatusBadRequest, "avatar file too large")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedAvatarExtensions[ext] {
		writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	contentType := header.Header.Get("Content-Type")
	user, err := h.userService.UploadAvatar(r.Context(), id, ext, file, header.Size, contentType)
	if err != nil {
		writeServiceError(w, err, "failed to upload avatar")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetAvatar streams the stored avatar image. Any authenticated user
// may view another user's avatar, same as the profile itself.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc, contentType, err := h.userService.DownloadAvatar(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch avatar")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

// ownResource ensures the path user matches the authenticated subject.
func (h *UserHandler) ownResource(r *http.Request) (int, error) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		return 0, err
	}
	subject, err := userIDFromContext(r.Context())
	if err != nil || subject != id {
		return 0, errors.New("cannot modify another user")
	}
	return id, nil
}

type UserUpdateRequest struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	AvatarURL *string  `json:"avatar_url"`
	Goals     []string `json:"goals"`
}
