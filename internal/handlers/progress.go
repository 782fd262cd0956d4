package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/progress2win/apiserver/internal/services"
	"github.com/progress2win/apiserver/types"
)

const dateLayout = "2006-01-02"

// ProgressHandler provides progress-entry endpoints.
type ProgressHandler struct {
	progressService *services.ProgressService
}

func NewProgressHandler(progressService *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// ProgressRouter registers progress routes on the given router. All
// routes require authentication.
func ProgressRouter(r chi.Router, progressService *services.ProgressService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewProgressHandler(progressService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListProgress)
	r.Post("/", handler.CreateProgress)
	r.Get("/stats", handler.GetStats)
	r.Route("/{progressID}", func(r chi.Router) {
		r.Get("/", handler.GetProgress)
		r.Put("/", handler.UpdateProgress)
		r.Delete("/", handler.DeleteProgress)
	})
}

func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
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

	filter, err := parseProgressFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	items, err := h.progressService.List(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, err, "failed to list progress")
		return
	}

	writeJSON(w, http.StatusOK, ProgressListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
	})
}

func (h *ProgressHandler) CreateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProgressUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	entry, err := h.progressService.Create(r.Context(), types.Progress{
		UserID:   userID,
		Category: strings.TrimSpace(req.Category),
		Metric:   strings.TrimSpace(req.Metric),
		Value:    req.Value,
		Unit:     strings.TrimSpace(req.Unit),
		Notes:    req.Notes,
		Date:     date,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create progress")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "progressID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.progressService.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, err, "failed to fetch progress")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "progressID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req ProgressUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	update := services.ProgressUpdate{
		Category: req.Category,
		Metric:   req.Metric,
		Value:    req.Value,
		Unit:     req.Unit,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		update.Date = &date
	}

	entry, err := h.progressService.Update(r.Context(), userID, id, update)
	if err != nil {
		writeServiceError(w, err, "failed to update progress")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *ProgressHandler) DeleteProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "progressID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.progressService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, err, "failed to delete progress")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.progressService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to fetch stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

type ProgressUpsertRequest struct {
	Category string  `json:"category"`
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Notes    string  `json:"notes"`
	Date     string  `json:"date"`
}

type ProgressUpdateRequest struct {
	Category *string  `json:"category"`
	Metric   *string  `json:"metric"`
	Value    *float64 `json:"value"`
	Unit     *string  `json:"unit"`
	Notes    *string  `json:"notes"`
	Date     *string  `json:"date"`
}

// ProgressListResponse is the paginated list response payload.
type ProgressListResponse struct {
	Items []types.Progress `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// parseProgressFilter reads the optional category and date-range query
// parameters shared by the listing endpoints.
func parseProgressFilter(r *http.Request) (types.ProgressFilter, error) {
	filter := types.ProgressFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("start_date")); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return types.ProgressFilter{}, errors.New("invalid start_date, expected YYYY-MM-DD")
		}
		filter.StartDate = &date
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end_date")); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			return types.ProgressFilter{}, errors.New("invalid end_date, expected YYYY-MM-DD")
		}
		filter.EndDate = &date
	}

	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}
