package bookapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 2*time.Second)
}

func TestListBooks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books/allbooks", r.URL.Path)
		w.Write([]byte(`{"books":[
			{"book_id":1,"title":"Dune","author":"Frank Herbert","description":"Spice.","read_book_link":"https://example.test/dune"},
			{"book_id":2,"title":"Stoner","author":"John Williams","description":"A life.","read_book_link":null}
		]}`))
	})

	books, err := c.ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.True(t, books[0].HasReadLink())
	assert.False(t, books[1].HasReadLink())
	assert.Equal(t, "Stoner", books[1].Title)
}

func TestCountsAcceptStringsAndNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("book_id"))
		switch r.URL.Path {
		case "/api/mentions/not-heard-before-count":
			w.Write([]byte(`{"count":"8"}`))
		case "/api/mentions/heard-not-rated-count":
			w.Write([]byte(`{"count":2}`))
		case "/api/ratings/rating-count":
			w.Write([]byte(`{"count":"0"}`))
		case "/api/ratings/sum-total":
			w.Write([]byte(`{"sum_total":null}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	n, err := c.NotHeardBeforeCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	n, err = c.HeardNotRatedCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = c.RatingCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = c.RatingSumTotal(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCountRejectsFractions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ratings/rating-count":
			w.Write([]byte(`{"count":"7.9"}`))
		case "/api/mentions/heard-not-rated-count":
			w.Write([]byte(`{"count":"4.0"}`))
		}
	})

	_, err := c.RatingCount(context.Background(), 1)
	assert.ErrorContains(t, err, "not a whole number")

	n, err := c.HeardNotRatedCount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.RatingCount(context.Background(), 1)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "/api/ratings/rating-count", statusErr.Path)
}

func TestBookByTitleNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "The Left Hand Of Darkness", r.URL.Query().Get("title"))
		http.NotFound(w, r)
	})

	_, err := c.BookByTitle(context.Background(), "The Left Hand Of Darkness")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestViewerListsForwardToken(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]bool{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path] = true
		mu.Unlock()
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "5", r.URL.Query().Get("user_id"))
		w.Write([]byte(`{"books":[{"book_id":3,"title":"Kindred"}]}`))
	})
	ctx := auth.WithViewer(context.Background(), &auth.Claims{UserID: 5}, "tok")

	for _, fetch := range []func(context.Context, domain.ViewerID) ([]domain.Book, error){
		c.BooksNotRatedBy, c.BooksNotMentionedBy, c.BooksNotHeardBeforeBy,
	} {
		books, err := fetch(ctx, 5)
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, int64(3), books[0].ID)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]bool{
		"/api/ratings/not-rated":         true,
		"/api/mentions/not-mentioned":    true,
		"/api/mentions/not-heard-before": true,
	}, paths)
}

func TestSaveRatingEditsExisting(t *testing.T) {
	var (
		mu     sync.Mutex
		posted string
		body   ratingRequest
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/mentions/checkmentioned":
			w.Write([]byte(`{"hasMentioned":true}`))
		case "/api/ratings/checkrating":
			w.Write([]byte(`{"rated":true,"userRating":6}`))
		case "/api/ratings/rate", "/api/ratings/edit":
			mu.Lock()
			defer mu.Unlock()
			posted = r.URL.Path
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, c.SaveRating(context.Background(), 4, 11, 9))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/ratings/edit", posted)
	assert.Equal(t, ratingRequest{UserID: 4, BookID: 11, Rating: 9}, body)
}

func TestEngagementNotMentioned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/mentions/checkmentioned":
			w.Write([]byte(`{"hasMentioned":null}`))
		case "/api/ratings/checkrating":
			w.Write([]byte(`{"rated":false}`))
		}
	})

	e, err := c.Engagement(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, e.Mentioned)
	assert.Nil(t, e.HeardBefore)
	assert.False(t, e.Rated)
}

func TestSubmitBook(t *testing.T) {
	var (
		mu   sync.Mutex
		body reviewBookRequest
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/books/checkbook":
			assert.Equal(t, "Piranesi", r.URL.Query().Get("title"))
			assert.Equal(t, "Susanna Clarke", r.URL.Query().Get("author"))
			w.Write([]byte(`{"exists":false}`))
		case "/api/books/reviewbook":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			mu.Lock()
			defer mu.Unlock()
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := auth.WithViewer(context.Background(), &auth.Claims{UserID: 5}, "tok")

	exists, err := c.BookExists(ctx, "Piranesi", "Susanna Clarke")
	require.NoError(t, err)
	assert.False(t, exists)

	book, err := c.SubmitBook(ctx, domain.BookSubmission{Title: "Piranesi", Author: "Susanna Clarke", Description: "Halls.", SubmittedBy: 5})
	require.NoError(t, err)
	assert.Equal(t, "Piranesi", book.Title)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, reviewBookRequest{Title: "Piranesi", Author: "Susanna Clarke", Description: "Halls."}, body)
}

func TestSubmitBookConflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.SubmitBook(context.Background(), domain.BookSubmission{Title: "Dune", Author: "Frank Herbert"})
	assert.ErrorIs(t, err, domain.ErrDuplicateBook)
}

func TestRecordReadClick(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies = map[string]string{}
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies[r.URL.Path] = string(raw)
		mu.Unlock()
		if r.URL.Path == "/api/read/click" || r.URL.Path == "/api/read/authclick" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	})
	ctx := context.Background()

	require.NoError(t, c.RecordReadClick(ctx, domain.ReadClick{BookID: 3, VisitorID: "tmp-1"}))
	require.NoError(t, c.RecordReadClick(ctx, domain.ReadClick{BookID: 3, Viewer: 8}))

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"user_id":"tmp-1","book_id":3}`, bodies["/api/read/click"])
	assert.JSONEq(t, `{"user_id":8,"book_id":3}`, bodies["/api/read/authclick"])
}
