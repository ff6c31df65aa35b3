package handler

import (
	"encoding/json"
	"net/http"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// GET /dashboard/books
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	kind, err := domain.ParseViewKind(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid view parameter")
		return
	}

	result, err := h.service.Dashboard(r.Context(), viewer, kind, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, r, result)
}

// GET /dashboard/books/{bookID}/engagement
func (h *Handler) Engagement(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())
	bookID, ok := parseBookID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid book_id parameter")
		return
	}

	e, err := h.service.Engagement(r.Context(), viewer, bookID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// PUT /dashboard/books/{bookID}/rating
func (h *Handler) RateBook(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())
	bookID, ok := parseBookID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid book_id parameter")
		return
	}

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rating", err.Error())
		return
	}

	if err := h.service.RateBook(r.Context(), viewer, bookID, req.Rating); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /dashboard/books
func (h *Handler) SubmitBook(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	var req SubmitBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_book", err.Error())
		return
	}

	book, err := h.service.SubmitBook(r.Context(), domain.BookSubmission{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		SubmittedBy: viewer,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitBookResponse{Book: book, Status: "pending_review"})
}

// PUT /dashboard/books/{bookID}/mention
func (h *Handler) MentionBook(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())
	bookID, ok := parseBookID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid book_id parameter")
		return
	}

	var req MentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be JSON")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mention", err.Error())
		return
	}

	if err := h.service.MentionBook(r.Context(), viewer, bookID, *req.HeardBefore); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
