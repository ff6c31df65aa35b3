// Package bookapi talks to the book list REST API that owns books, mentions
// and ratings when the service is not pointed at the database directly.
package bookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/actuallystonmai/booklist-service/internal/auth"
	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// StatusError is returned for any non-2xx answer from the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// count decodes counters the API sends either as numbers or as numeric
// strings.
type count int64

func (c *count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("decode count %s: %w", b, err)
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("decode count %s: not a whole number", b)
		}
		n = int64(f)
	}
	*c = count(n)
	return nil
}

type countResponse struct {
	Count count `json:"count"`
}

type sumResponse struct {
	SumTotal count `json:"sum_total"`
}

type booksResponse struct {
	Books []domain.Book `json:"books"`
}

type bookResponse struct {
	Book *domain.Book `json:"book"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	// an empty body leaves out untouched
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func bookQuery(bookID int64) url.Values {
	return url.Values{"book_id": {strconv.FormatInt(bookID, 10)}}
}

func viewerQuery(viewer domain.ViewerID) url.Values {
	return url.Values{"user_id": {strconv.FormatInt(int64(viewer), 10)}}
}

func (c *Client) getCount(ctx context.Context, path string, bookID int64) (int64, error) {
	var resp countResponse
	if err := c.do(ctx, http.MethodGet, path, bookQuery(bookID), nil, &resp); err != nil {
		return 0, err
	}
	return int64(resp.Count), nil
}

func (c *Client) getBooks(ctx context.Context, path string, query url.Values) ([]domain.Book, error) {
	var resp booksResponse
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Books == nil {
		return []domain.Book{}, nil
	}
	return resp.Books, nil
}

func (c *Client) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return c.getBooks(ctx, "/api/books/allbooks", nil)
}

func (c *Client) BookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	var resp bookResponse
	err := c.do(ctx, http.MethodGet, "/api/books/bookdetails", url.Values{"title": {title}}, nil, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	if resp.Book == nil {
		return nil, domain.ErrBookNotFound
	}
	return resp.Book, nil
}

func (c *Client) NotHeardBeforeCount(ctx context.Context, bookID int64) (int64, error) {
	return c.getCount(ctx, "/api/mentions/not-heard-before-count", bookID)
}

func (c *Client) HeardNotRatedCount(ctx context.Context, bookID int64) (int64, error) {
	return c.getCount(ctx, "/api/mentions/heard-not-rated-count", bookID)
}

func (c *Client) RatingCount(ctx context.Context, bookID int64) (int64, error) {
	return c.getCount(ctx, "/api/ratings/rating-count", bookID)
}

func (c *Client) RatingSumTotal(ctx context.Context, bookID int64) (int64, error) {
	var resp sumResponse
	if err := c.do(ctx, http.MethodGet, "/api/ratings/sum-total", bookQuery(bookID), nil, &resp); err != nil {
		return 0, err
	}
	return int64(resp.SumTotal), nil
}

func (c *Client) BooksNotRatedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	return c.getBooks(ctx, "/api/ratings/not-rated", viewerQuery(viewer))
}

func (c *Client) BooksNotMentionedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	return c.getBooks(ctx, "/api/mentions/not-mentioned", viewerQuery(viewer))
}

func (c *Client) BooksNotHeardBeforeBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	return c.getBooks(ctx, "/api/mentions/not-heard-before", viewerQuery(viewer))
}

type checkRatingResponse struct {
	Rated      bool `json:"rated"`
	UserRating *int `json:"userRating"`
}

type checkMentionResponse struct {
	HasMentioned *bool `json:"hasMentioned"`
}

func (c *Client) Engagement(ctx context.Context, viewer domain.ViewerID, bookID int64) (*domain.Engagement, error) {
	q := viewerQuery(viewer)
	q.Set("book_id", strconv.FormatInt(bookID, 10))

	var mention checkMentionResponse
	if err := c.do(ctx, http.MethodGet, "/api/mentions/checkmentioned", q, nil, &mention); err != nil {
		return nil, err
	}
	var rating checkRatingResponse
	if err := c.do(ctx, http.MethodGet, "/api/ratings/checkrating", q, nil, &rating); err != nil {
		return nil, err
	}

	return &domain.Engagement{
		BookID:      bookID,
		Mentioned:   mention.HasMentioned != nil,
		HeardBefore: mention.HasMentioned,
		Rated:       rating.Rated,
		Rating:      rating.UserRating,
	}, nil
}

type ratingRequest struct {
	UserID int64 `json:"user_id"`
	BookID int64 `json:"book_id"`
	Rating int   `json:"rating"`
}

// SaveRating edits an existing rating or creates a new one.
func (c *Client) SaveRating(ctx context.Context, viewer domain.ViewerID, bookID int64, rating int) error {
	current, err := c.Engagement(ctx, viewer, bookID)
	if err != nil {
		return err
	}
	path := "/api/ratings/rate"
	if current.Rated {
		path = "/api/ratings/edit"
	}
	body := ratingRequest{UserID: int64(viewer), BookID: bookID, Rating: rating}
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

type mentionRequest struct {
	UserID    int64 `json:"user_id"`
	BookID    int64 `json:"book_id"`
	Mentioned bool  `json:"mentioned"`
}

func (c *Client) SaveMention(ctx context.Context, viewer domain.ViewerID, bookID int64, heardBefore bool) error {
	body := mentionRequest{UserID: int64(viewer), BookID: bookID, Mentioned: heardBefore}
	return c.do(ctx, http.MethodPost, "/api/mentions/mentioned", nil, body, nil)
}

type checkBookResponse struct {
	Exists bool `json:"exists"`
}

func (c *Client) BookExists(ctx context.Context, title, author string) (bool, error) {
	var resp checkBookResponse
	q := url.Values{"title": {title}, "author": {author}}
	if err := c.do(ctx, http.MethodGet, "/api/books/checkbook", q, nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

type reviewBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// SubmitBook sends a recommendation to the moderation queue.
func (c *Client) SubmitBook(ctx context.Context, s domain.BookSubmission) (*domain.Book, error) {
	var resp bookResponse
	body := reviewBookRequest{Title: s.Title, Author: s.Author, Description: s.Description}
	err := c.do(ctx, http.MethodPost, "/api/books/reviewbook", nil, body, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusConflict {
		return nil, domain.ErrDuplicateBook
	}
	if err != nil {
		return nil, err
	}
	if resp.Book == nil {
		return &domain.Book{Title: s.Title, Author: s.Author, Description: s.Description}, nil
	}
	return resp.Book, nil
}

type visitorClickRequest struct {
	UserID string `json:"user_id"`
	BookID int64  `json:"book_id"`
}

type viewerClickRequest struct {
	UserID int64 `json:"user_id"`
	BookID int64 `json:"book_id"`
}

// RecordReadClick logs a read link click, on the authenticated endpoint for
// signed-in viewers.
func (c *Client) RecordReadClick(ctx context.Context, click domain.ReadClick) error {
	var err error
	if click.Anonymous() {
		body := visitorClickRequest{UserID: click.VisitorID, BookID: click.BookID}
		err = c.do(ctx, http.MethodPost, "/api/read/click", nil, body, nil)
	} else {
		body := viewerClickRequest{UserID: int64(click.Viewer), BookID: click.BookID}
		err = c.do(ctx, http.MethodPost, "/api/read/authclick", nil, body, nil)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return domain.ErrBookNotFound
	}
	return err
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/books/allbooks", nil, nil, nil)
}
