package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/actuallystonmai/booklist-service/internal/handler"
	"github.com/actuallystonmai/booklist-service/internal/metrics"
)

func Setup(h *handler.Handler, m *metrics.Metrics, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(m.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Routes
	r.Get("/health", healthCheck)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Get("/books", h.ListBooks)
	r.Get("/books/{slug}", h.GetBook)
	r.With(h.OptionalViewer).Post("/read/{bookID}", h.ReadBook)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireViewer)

		r.Post("/auth/logout", h.Logout)

		r.Get("/dashboard/books", h.Dashboard)
		r.Post("/dashboard/books", h.SubmitBook)
		r.Get("/dashboard/books/{bookID}/engagement", h.Engagement)
		r.Put("/dashboard/books/{bookID}/rating", h.RateBook)
		r.Put("/dashboard/books/{bookID}/mention", h.MentionBook)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
