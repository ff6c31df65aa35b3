package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// RequireViewer authenticates the bearer token and rejects logged out
// sessions.
func (h *Handler) RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}
		h.authenticate(w, r, next, token)
	})
}

// OptionalViewer authenticates a bearer token when one is sent and lets
// anonymous requests through. A bad token is still rejected.
func (h *Handler) OptionalViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Malformed bearer token")
			return
		}
		h.authenticate(w, r, next, token)
	})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	claims, err := h.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
		return
	}

	viewer := domain.ViewerID(claims.UserID)
	revoked, err := h.sessions.IsRevoked(r.Context(), viewer, claims.ID)
	if err != nil {
		log.Error().Err(err).Int64("viewer", claims.UserID).Msg("[handler] session lookup failed")
		writeError(w, http.StatusServiceUnavailable, "session_unavailable", "Session store is unavailable")
		return
	}
	if revoked {
		writeError(w, http.StatusUnauthorized, "session_revoked", "Session has been logged out")
		return
	}

	next.ServeHTTP(w, r.WithContext(auth.WithViewer(r.Context(), claims, token)))
}

// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
		return
	}

	viewer := domain.ViewerID(claims.UserID)
	if err := h.sessions.Revoke(r.Context(), viewer, claims.ID, claims.Remaining(time.Now())); err != nil {
		log.Error().Err(err).Int64("viewer", claims.UserID).Msg("[handler] logout failed")
		writeError(w, http.StatusServiceUnavailable, "session_unavailable", "Session store is unavailable")
		return
	}
	log.Info().Int64("viewer", claims.UserID).Msg("[handler] viewer logged out")
	w.WriteHeader(http.StatusNoContent)
}
