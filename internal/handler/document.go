package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"participa/internal/domain/services"
	"participa/internal/httputil"
)

// DocumentHandler handles document HTTP requests.
type DocumentHandler struct {
	documents services.DocumentService
	export    services.ExportService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(documents services.DocumentService, export services.ExportService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		export:    export,
		logger:    logger,
	}
}

// HealthCheck reports liveness.
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListDocuments lists published documents.
// GET /api/documents?page=&limit=&closed=&tag=&created=asc
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := h.documents.List(r.Context(), listOptions(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// ListMyDocuments lists the caller's documents, drafts included.
// GET /api/my-documents
func (h *DocumentHandler) ListMyDocuments(w http.ResponseWriter, r *http.Request) {
	page, err := h.documents.ListMine(r.Context(), httputil.GetUserID(r), listOptions(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, page)
}

// CreateDocument creates a new document with its version 1.
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Author = httputil.GetUserID(r)

	view, err := h.documents.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, view)
}

// GetDocument retrieves one document with caller-dependent derived data.
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	payload, err := h.documents.Get(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, payload)
}

// GetDocumentVersion additionally resolves one historical version.
// GET /api/documents/{id}/version/{number}
func (h *DocumentHandler) GetDocumentVersion(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "version number must be an integer")
		return
	}

	payload, err := h.documents.GetVersion(r.Context(), r.PathValue("id"), number, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, payload)
}

// UpdateDocument amends or forks the current version and patches the
// envelope.
// PUT /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Caller = httputil.GetUserID(r)

	view, err := h.documents.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}

// SupportDocument appends an authenticated support.
// POST /api/documents/{id}/apoyar
func (h *DocumentHandler) SupportDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Support(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ExportMyDocuments downloads the caller's documents as a spreadsheet.
// GET /api/my-documents/export-xls
func (h *DocumentHandler) ExportMyDocuments(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.export.AuthorDocumentsXLS(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func listOptions(r *http.Request) services.ListDocumentsOptions {
	q := r.URL.Query()
	opts := services.ListDocumentsOptions{
		Tag:        q.Get("tag"),
		CreatedAsc: q.Get("created") == "asc",
	}
	opts.Page, _ = strconv.Atoi(q.Get("page"))
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	if raw := q.Get("closed"); raw != "" {
		if closed, err := strconv.ParseBool(raw); err == nil {
			opts.Closed = &closed
		}
	}
	return opts
}
