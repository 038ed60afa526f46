package handler

import (
	"log/slog"
	"net/http"

	"participa/internal/domain/services"
	"participa/internal/httputil"
)

// TagHandler handles the tag catalog HTTP requests.
type TagHandler struct {
	tags   services.TagService
	logger *slog.Logger
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(tags services.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{
		tags:   tags,
		logger: logger,
	}
}

// ListTags returns the whole catalog.
// GET /api/document-tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tags)
}

// CreateTag adds a tag to the catalog. Admin only.
// POST /api/document-tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.tags.Create(r.Context(), req.Name)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, tag)
}

// DeleteTag removes a tag and cascade-cleans its references. Admin only.
// DELETE /api/document-tags/{id}
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := h.tags.Delete(r.Context(), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
