package handler

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"participa/internal/domain/services"
	"participa/internal/httputil"
)

// SupportHandler handles the anonymous-support endpoints.
type SupportHandler struct {
	support services.SupportService
	logger  *slog.Logger
}

// NewSupportHandler creates a new support handler.
func NewSupportHandler(support services.SupportService, logger *slog.Logger) *SupportHandler {
	return &SupportHandler{
		support: support,
		logger:  logger,
	}
}

// GetCaptcha issues a captcha challenge for the anonymous support form.
// GET /api/captcha-data
func (h *SupportHandler) GetCaptcha(w http.ResponseWriter, r *http.Request) {
	data, err := h.support.RequestCaptcha(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"image":       base64.StdEncoding.EncodeToString(data.Image),
		"fingerprint": data.Fingerprint,
	})
}

// RequestSupport starts the double-opt-in for an anonymous support.
// POST /api/documents/{id}/apoyar-anon
func (h *SupportHandler) RequestSupport(w http.ResponseWriter, r *http.Request) {
	var req services.SupportRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DocumentID = r.PathValue("id")

	if err := h.support.RequestSupport(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "validation mail sent"})
}

// ConfirmSupport consumes a validation token from the mail link.
// POST /api/apoyo-anon-validar/{token}
func (h *SupportHandler) ConfirmSupport(w http.ResponseWriter, r *http.Request) {
	view, err := h.support.ConfirmSupport(r.Context(), r.PathValue("token"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}
