package handler

import (
	"errors"
	"net/http"

	"participa/internal/domain"
	"participa/internal/httputil"
)

// handleError converts domain errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	var schemaErr *domain.SchemaError

	switch {
	case errors.As(err, &schemaErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, "invalid content", map[string]interface{}{
			"errors": schemaErr.Fields,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCaptchaMismatch):
		httputil.RespondError(w, http.StatusUnauthorized, "captcha mismatch")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrDocumentClosed):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrPendingValidation), errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
