package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// visitorHeader carries the temporary id of a signed-out reader.
const visitorHeader = "X-Visitor-ID"

// GET /books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RankedBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeList(w, r, result)
}

// GET /books/{slug}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.BookDetails(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookResponse{Book: book, ReadLinkAvailable: book.HasReadLink()})
}

// POST /read/{bookID}
func (h *Handler) ReadBook(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())
	bookID, ok := parseBookID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid book_id parameter")
		return
	}

	visitor := r.Header.Get(visitorHeader)
	if err := validation.Validate(visitor, visitorID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_visitor", err.Error())
		return
	}

	click, err := h.service.RecordRead(r.Context(), viewer, visitor, bookID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if click.VisitorID != "" {
		w.Header().Set(visitorHeader, click.VisitorID)
	}
	writeJSON(w, http.StatusAccepted, ReadClickResponse{BookID: click.BookID, VisitorID: click.VisitorID})
}

// writeList drops the per-book score breakdown unless ?verbose=true.
func writeList(w http.ResponseWriter, r *http.Request, result *domain.BookListResult) {
	if verbose, _ := strconv.ParseBool(r.URL.Query().Get("verbose")); !verbose {
		for i := range result.Books {
			result.Books[i].Breakdown = nil
		}
	}
	writeJSON(w, http.StatusOK, BookListResponse{
		BookListResult: result,
		Metadata: ListMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(result.Books),
		},
	})
}
