package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"participa/internal/auth"
	"participa/internal/domain"
	"participa/internal/httputil"
)

// Auth validates the bearer token when one is present and attaches the
// identity to the request context. Requests without a token pass through
// anonymous; handlers that need an identity reject them there. A token that
// is present but invalid is a hard 401.
func Auth(verifier auth.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					logger.Error("token verification", "error", err)
				}
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithIdentity(r, claims.GetUserID(), claims.RealmAccess.Roles))
		})
	}
}

// RequireUser rejects anonymous requests before the handler runs.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if httputil.GetUserID(r) == "" {
			httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

// RequireRole rejects requests whose identity lacks the role tag.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return RequireUser(func(w http.ResponseWriter, r *http.Request) {
		if !httputil.HasRole(r, role) {
			httputil.RespondError(w, http.StatusForbidden, "insufficient role")
			return
		}
		next(w, r)
	})
}
