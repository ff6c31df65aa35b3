package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
	"github.com/actuallystonmai/booklist-service/internal/service"
)

// SessionStore remembers which viewer sessions have been logged out.
type SessionStore interface {
	Revoke(ctx context.Context, viewer domain.ViewerID, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, viewer domain.ViewerID, sessionID string) (bool, error)
}

type Handler struct {
	service  *service.Service
	tokens   *auth.Manager
	sessions SessionStore
}

func NewHandler(svc *service.Service, tokens *auth.Manager, sessions SessionStore) *Handler {
	return &Handler{
		service:  svc,
		tokens:   tokens,
		sessions: sessions,
	}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("[handler] encode response")
	}
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps service errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNoTitleMatch):
		writeError(w, http.StatusNotFound, "no_match",
			"No book title matches your search query! Double-check you've input the correct title "+
				"into the search field. Otherwise, consider adding the book to The Book List.")
	case errors.Is(err, domain.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "book_not_found", "Book details not available")
	case errors.Is(err, domain.ErrUnknownView):
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid view parameter")
	case errors.Is(err, domain.ErrDuplicateBook):
		writeError(w, http.StatusConflict, "duplicate_book", "This book is already on The Book List.")
	case errors.Is(err, domain.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "invalid_rating", "Rating must be between 1 and 10")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "Request timed out, please try again")
	case domain.IsViewFetchError(err):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("[handler] book list unavailable")
		writeError(w, http.StatusBadGateway, "list_unavailable", "Failed to fetch books. Please try again later.")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("[handler] unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func parseBookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
