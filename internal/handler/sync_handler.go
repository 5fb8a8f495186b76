package handler

import (
	"encoding/json"
	"net/http"

	"leettrack-sync/internal/domain"
	"leettrack-sync/internal/middleware"
	"leettrack-sync/internal/service"
	"leettrack-sync/pkg/response"

	"github.com/go-playground/validator/v10"
)

type SyncHandler struct {
	syncService *service.SyncService
	validator   *validator.Validate
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		validator:   validator.New(),
	}
}

// Fetch returns every stored topic's progress for the caller, most recently
// updated first.
func (h *SyncHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	entries, err := h.syncService.FetchAll(userID)
	if err != nil {
		response.InternalError(w, "failed to fetch progress")
		return
	}

	response.Raw(w, http.StatusOK, domain.FetchProgressResponse{Progress: entries})
}

// Upload upserts a batch of topics, reporting per-topic results.
func (h *SyncHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req domain.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "invalid progress data")
		return
	}

	results := h.syncService.UpsertBatch(userID, &req)
	response.Raw(w, http.StatusOK, domain.UploadResponse{Results: results})
}

// Delete removes one topic's record, or all of the caller's records when no
// topicId query parameter is given.
func (h *SyncHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	topicID := r.URL.Query().Get("topicId")

	if err := h.syncService.Delete(userID, topicID); err != nil {
		response.InternalError(w, "failed to delete progress")
		return
	}

	response.Raw(w, http.StatusOK, map[string]bool{"success": true})
}
