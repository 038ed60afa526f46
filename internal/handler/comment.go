package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"participa/internal/domain/services"
	"participa/internal/httputil"
)

// CommentHandler handles comment and like HTTP requests.
type CommentHandler struct {
	comments services.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new comment handler.
func NewCommentHandler(comments services.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger,
	}
}

// ListComments lists a document's comments on one field or by id list.
// GET /api/documents/{id}/comments?field=articles or ?ids=a,b,c
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := services.ListCommentsOptions{Field: q.Get("field")}
	if raw := q.Get("ids"); raw != "" {
		opts.IDs = strings.Split(raw, ",")
	}

	views, err := h.comments.ListByDocument(r.Context(), r.PathValue("id"), opts, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, views)
}

// CreateComment adds a comment on a commentable field.
// POST /api/documents/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Document = r.PathValue("id")
	req.Caller = httputil.GetUserID(r)

	c, err := h.comments.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, c)
}

// ResolveComment marks a comment resolved. Document author only.
// POST /api/documents/{id}/comments/{commentID}/resolve
func (h *CommentHandler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.comments.Resolve(r.Context(), r.PathValue("id"), r.PathValue("commentID"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, c)
}

// ReplyComment sets the author's reply on a comment.
// POST /api/documents/{id}/comments/{commentID}/reply
func (h *CommentHandler) ReplyComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reply string `json:"reply"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.comments.Reply(r.Context(), r.PathValue("id"), r.PathValue("commentID"), httputil.GetUserID(r), req.Reply)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, c)
}

// ToggleLike likes or unlikes a comment for the caller.
// POST /api/documents/{id}/comments/{commentID}/like
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	like, err := h.comments.ToggleLike(r.Context(), r.PathValue("id"), r.PathValue("commentID"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	if like == nil {
		httputil.RespondJSON(w, http.StatusOK, map[string]bool{"liked": false})
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, like)
}

// DeleteComment removes a comment.
// DELETE /api/documents/{id}/comments/{commentID}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.Delete(r.Context(), r.PathValue("id"), r.PathValue("commentID"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
