package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
	"github.com/actuallystonmai/booklist-service/internal/handler"
	"github.com/actuallystonmai/booklist-service/internal/metrics"
	"github.com/actuallystonmai/booklist-service/internal/ranking"
	"github.com/actuallystonmai/booklist-service/internal/service"
)

type stubSource struct {
	mu      sync.Mutex
	books   []domain.Book
	aggs    map[int64]domain.Aggregates
	broken  map[int64]bool
	listErr error
	ratings map[int64]int

	submitted []domain.BookSubmission
	clicks    []domain.ReadClick
}

func (s *stubSource) NotHeardBeforeCount(_ context.Context, id int64) (int64, error) {
	return s.aggs[id].NotHeardBefore, nil
}

func (s *stubSource) HeardNotRatedCount(_ context.Context, id int64) (int64, error) {
	if s.broken[id] {
		return 0, errors.New("timeout")
	}
	return s.aggs[id].HeardNotRated, nil
}

func (s *stubSource) RatingCount(_ context.Context, id int64) (int64, error) {
	return s.aggs[id].RatingCount, nil
}

func (s *stubSource) RatingSumTotal(_ context.Context, id int64) (int64, error) {
	return s.aggs[id].RatingSumTotal, nil
}

func (s *stubSource) ListBooks(context.Context) ([]domain.Book, error) {
	return s.books, s.listErr
}

func (s *stubSource) BookByTitle(_ context.Context, title string) (*domain.Book, error) {
	for _, b := range s.books {
		if b.Title == title {
			return &b, nil
		}
	}
	return nil, domain.ErrBookNotFound
}

func (s *stubSource) BooksNotRatedBy(context.Context, domain.ViewerID) ([]domain.Book, error) {
	return s.books[:1], nil
}

func (s *stubSource) BooksNotMentionedBy(context.Context, domain.ViewerID) ([]domain.Book, error) {
	return nil, errors.New("connection refused")
}

func (s *stubSource) BooksNotHeardBeforeBy(context.Context, domain.ViewerID) ([]domain.Book, error) {
	return []domain.Book{}, nil
}

func (s *stubSource) Engagement(_ context.Context, _ domain.ViewerID, bookID int64) (*domain.Engagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &domain.Engagement{BookID: bookID}
	if r, ok := s.ratings[bookID]; ok {
		e.Rated, e.Rating = true, &r
	}
	return e, nil
}

func (s *stubSource) SaveRating(_ context.Context, _ domain.ViewerID, bookID int64, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[bookID] = rating
	return nil
}

func (s *stubSource) SaveMention(context.Context, domain.ViewerID, int64, bool) error {
	return nil
}

func (s *stubSource) BookExists(_ context.Context, title, author string) (bool, error) {
	for _, b := range s.books {
		if b.Title == title && b.Author == author {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSource) SubmitBook(_ context.Context, sub domain.BookSubmission) (*domain.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, sub)
	return &domain.Book{ID: int64(100 + len(s.submitted)), Title: sub.Title, Author: sub.Author, Description: sub.Description}, nil
}

func (s *stubSource) RecordReadClick(_ context.Context, c domain.ReadClick) error {
	if _, err := s.bookByID(c.BookID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, c)
	return nil
}

func (s *stubSource) bookByID(id int64) (*domain.Book, error) {
	for _, b := range s.books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, domain.ErrBookNotFound
}

type memorySessions struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memorySessions) Revoke(_ context.Context, _ domain.ViewerID, sid string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[sid] = true
	return nil
}

func (m *memorySessions) IsRevoked(_ context.Context, _ domain.ViewerID, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[sid], nil
}

type testEnv struct {
	handler http.Handler
	source  *stubSource
	tokens  *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	src := &stubSource{
		books: []domain.Book{
			{ID: 1, Title: "Stoner", Author: "John Williams"},
			{ID: 2, Title: "Dune", Author: "Frank Herbert"},
			{ID: 3, Title: "Dune Messiah", Author: "Frank Herbert"},
		},
		aggs: map[int64]domain.Aggregates{
			1: {NotHeardBefore: 8, HeardNotRated: 2},
			2: {RatingCount: 5, RatingSumTotal: 40},
			3: {NotHeardBefore: 1, HeardNotRated: 1},
		},
		broken:  map[int64]bool{},
		ratings: map[int64]int{},
	}
	m := metrics.New()
	tokens := auth.NewManager("test-secret")
	svc := service.NewService(src, ranking.NewBuilder(src, ranking.WithRecorder(m)))
	h := handler.NewHandler(svc, tokens, &memorySessions{revoked: map[string]bool{}})

	return &testEnv{handler: Setup(h, m, 5*time.Second), source: src, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, viewer domain.ViewerID) string {
	t.Helper()
	tok, err := e.tokens.Issue(viewer, time.Hour)
	require.NoError(t, err)
	return tok
}

type listBody struct {
	View  string `json:"view"`
	Query string `json:"query"`
	Books []struct {
		Rank          int     `json:"rank"`
		BookID        int64   `json:"book_id"`
		Title         string  `json:"title"`
		WeightedScore float64 `json:"weighted_score"`
	} `json:"books"`
	Unscored []struct {
		BookID int64  `json:"book_id"`
		Error  string `json:"error"`
	} `json:"unscored"`
	Metadata struct {
		TotalCount int `json:"total_count"`
	} `json:"metadata"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := newTestEnv(t).do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListBooksRanked(t *testing.T) {
	rec := newTestEnv(t).do(t, http.MethodGet, "/books", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeList(t, rec)
	require.Len(t, body.Books, 3)
	assert.Equal(t, "all", body.View)
	assert.Equal(t, int64(1), body.Books[0].BookID)
	assert.InDelta(t, 40.0, body.Books[0].WeightedScore, 1e-9)
	assert.Equal(t, int64(3), body.Books[1].BookID)
	assert.Equal(t, int64(2), body.Books[2].BookID)
	assert.Equal(t, 3, body.Metadata.TotalCount)
}

func TestListBooksSearch(t *testing.T) {
	rec := newTestEnv(t).do(t, http.MethodGet, "/books?q=dune", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeList(t, rec)
	assert.Equal(t, "Dune", body.Query)
	require.Len(t, body.Books, 2)
	assert.Equal(t, "Dune Messiah", body.Books[0].Title)
	assert.Equal(t, 1, body.Books[0].Rank)
	assert.Equal(t, "Dune", body.Books[1].Title)
}

func TestListBooksNoMatch(t *testing.T) {
	rec := newTestEnv(t).do(t, http.MethodGet, "/books?q=Zzz_no_such_title", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"no_match"`)
}

func TestListBooksPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.source.broken[1] = true

	rec := env.do(t, http.MethodGet, "/books", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeList(t, rec)
	require.Len(t, body.Books, 2)
	require.Len(t, body.Unscored, 1)
	assert.Equal(t, int64(1), body.Unscored[0].BookID)
	assert.Equal(t, "aggregate_unavailable", body.Unscored[0].Error)
}

func TestListBooksUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.source.listErr = errors.New("connection refused")

	rec := env.do(t, http.MethodGet, "/books", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"list_unavailable"`)
}

func TestGetBookBySlug(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/books/dune-messiah", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Dune Messiah"`)
	assert.Contains(t, rec.Body.String(), `"read_link_available":false`)

	rec = env.do(t, http.MethodGet, "/books/children-of-dune", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/dashboard/books", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/dashboard/books", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardViews(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	rec := env.do(t, http.MethodGet, "/dashboard/books?view=notRated", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeList(t, rec)
	assert.Equal(t, "notRated", body.View)
	require.Len(t, body.Books, 1)
	assert.Equal(t, int64(1), body.Books[0].BookID)

	rec = env.do(t, http.MethodGet, "/dashboard/books?view=notHeardBefore", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeList(t, rec).Books)

	rec = env.do(t, http.MethodGet, "/dashboard/books?view=notMentioned", tok, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodGet, "/dashboard/books?view=favourites", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateBook(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	rec := env.do(t, http.MethodPut, "/dashboard/books/2/rating", tok, `{"rating":11}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/dashboard/books/2/rating", tok, `{"rating":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/dashboard/books/abc/rating", tok, `{"rating":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/dashboard/books/2/rating", tok, `{"rating":9}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/dashboard/books/2/engagement", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"book_id":2,"mentioned":false,"heard_before":null,"rated":true,"rating":9}`, rec.Body.String())
}

func TestMentionBookRequiresAnswer(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	rec := env.do(t, http.MethodPut, "/dashboard/books/2/mention", tok, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/dashboard/books/2/mention", tok, `{"heard_before":false}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	rec := env.do(t, http.MethodPost, "/auth/logout", tok, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/dashboard/books", tok, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_revoked")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/books", "", "")

	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "booklist_ranking_books_scored_total 3")
	assert.Contains(t, rec.Body.String(), `booklist_http_requests_total{method="GET",route="/books",status="200"} 1`)
}

func TestListBooksVerboseBreakdown(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/books", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "breakdown")

	rec = env.do(t, http.MethodGet, "/books?verbose=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Books []struct {
			BookID    int64 `json:"book_id"`
			Breakdown struct {
				Unfamiliarity float64 `json:"unfamiliarity"`
				Quality       float64 `json:"quality"`
			} `json:"breakdown"`
		} `json:"books"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Books)
	assert.Equal(t, int64(1), body.Books[0].BookID)
	assert.InDelta(t, 80.0, body.Books[0].Breakdown.Unfamiliarity, 1e-9)
	assert.InDelta(t, 0.0, body.Books[0].Breakdown.Quality, 1e-9)
}

func TestSubmitBook(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	rec := env.do(t, http.MethodPost, "/dashboard/books", "", `{"title":"x","author":"y","description":"z"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/dashboard/books", tok,
		`{"title":"  the  word for world is forest ","author":"Ursula K. Le Guin","description":"Colonists log an island world."}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"The Word For World Is Forest"`)
	assert.Contains(t, rec.Body.String(), `"status":"pending_review"`)

	require.Len(t, env.source.submitted, 1)
	assert.Equal(t, domain.ViewerID(7), env.source.submitted[0].SubmittedBy)
}

func TestSubmitBookDuplicate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/dashboard/books", env.token(t, 7),
		`{"title":"dune messiah","author":"Frank Herbert","description":"Sequel."}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"duplicate_book"`)
	assert.Empty(t, env.source.submitted)
}

func TestSubmitBookValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, 7)

	for name, body := range map[string]string{
		"blank author":    `{"title":"Solaris","author":"   ","description":"Ocean."}`,
		"link in title":   `{"title":"https://example.test","author":"Lem","description":"Ocean."}`,
		"link in desc":    `{"title":"Solaris","author":"Lem","description":"see www.example.test"}`,
		"combining acute": "{\"title\":\"Solaris\",\"author\":\"Stanisl\u0301aw Lem\",\"description\":\"Ocean.\"}",
		"not json":        `{"title":`,
	} {
		rec := env.do(t, http.MethodPost, "/dashboard/books", tok, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Empty(t, env.source.submitted)
}

func TestReadClickAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/read/2", "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		BookID    int64  `json:"book_id"`
		VisitorID string `json:"visitor_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.BookID)
	assert.NotEmpty(t, body.VisitorID)
	assert.Equal(t, body.VisitorID, rec.Header().Get("X-Visitor-ID"))

	req := httptest.NewRequest(http.MethodPost, "/read/3", nil)
	req.Header.Set("X-Visitor-ID", body.VisitorID)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, env.source.clicks, 2)
	assert.Equal(t, env.source.clicks[0].VisitorID, env.source.clicks[1].VisitorID)
	assert.True(t, env.source.clicks[1].Anonymous())
}

func TestReadClickSignedIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/read/1", env.token(t, 7), "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "visitor_id")

	require.Len(t, env.source.clicks, 1)
	assert.Equal(t, domain.ViewerID(7), env.source.clicks[0].Viewer)
	assert.Empty(t, env.source.clicks[0].VisitorID)
}

func TestReadClickRejects(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/read/99", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/read/abc", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/read/1", "not-a-jwt", "").Code)

	req := httptest.NewRequest(http.MethodPost, "/read/1", nil)
	req.Header.Set("X-Visitor-ID", "'; DROP TABLE read_clicks")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, env.source.clicks)
}
