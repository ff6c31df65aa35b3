package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/actuallystonmai/booklist-service/internal/domain"
	"github.com/actuallystonmai/booklist-service/internal/ranking"
)

// DataSource is everything the service needs from the book data service.
type DataSource interface {
	ranking.AggregateSource

	ListBooks(ctx context.Context) ([]domain.Book, error)
	BookByTitle(ctx context.Context, title string) (*domain.Book, error)

	BooksNotRatedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error)
	BooksNotMentionedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error)
	BooksNotHeardBeforeBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error)

	Engagement(ctx context.Context, viewer domain.ViewerID, bookID int64) (*domain.Engagement, error)
	SaveRating(ctx context.Context, viewer domain.ViewerID, bookID int64, rating int) error
	SaveMention(ctx context.Context, viewer domain.ViewerID, bookID int64, heardBefore bool) error

	BookExists(ctx context.Context, title, author string) (bool, error)
	SubmitBook(ctx context.Context, s domain.BookSubmission) (*domain.Book, error)
	RecordReadClick(ctx context.Context, c domain.ReadClick) error
}

type Service struct {
	source  DataSource
	builder *ranking.Builder
}

func NewService(source DataSource, builder *ranking.Builder) *Service {
	return &Service{
		source:  source,
		builder: builder,
	}
}

// RankedBooks ranks every book and narrows the result to titles starting
// with query.
func (s *Service) RankedBooks(ctx context.Context, query string) (*domain.BookListResult, error) {
	return s.Dashboard(ctx, 0, domain.ViewAll, query)
}

// Dashboard ranks the books of one viewer-scoped view. The ViewAll view does
// not depend on the viewer.
func (s *Service) Dashboard(ctx context.Context, viewer domain.ViewerID, kind domain.ViewKind, query string) (*domain.BookListResult, error) {
	start := time.Now()

	books, err := s.SelectView(ctx, kind, viewer)
	if err != nil {
		return nil, err
	}

	list, err := s.builder.Build(ctx, books)
	if err != nil {
		return nil, fmt.Errorf("rank %s view: %w", kind, err)
	}

	entries := ranking.FilterByTitlePrefix(list.Entries, query)
	failed := filterFailures(list.Failed, query)
	if query != "" && len(entries) == 0 && len(failed) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrNoTitleMatch, query)
	}

	result := &domain.BookListResult{
		View:     kind,
		Query:    ranking.TitleCase(query),
		Books:    make([]domain.RankedBookResult, 0, len(entries)),
		Unscored: make([]domain.UnscoredBookResult, 0, len(failed)),
	}
	for i, e := range entries {
		breakdown := e.Breakdown
		result.Books = append(result.Books, domain.RankedBookResult{
			Rank:              i + 1,
			Book:              e.Book,
			ReadLinkAvailable: e.HasReadLink(),
			WeightedScore:     e.Score,
			Breakdown:         &breakdown,
		})
	}
	for _, f := range failed {
		code, msg := categorizeError(f.Err)
		result.Unscored = append(result.Unscored, domain.UnscoredBookResult{
			BookID:  f.Book.ID,
			Title:   f.Book.Title,
			Status:  domain.StatusFailed,
			Error:   code,
			Message: msg,
		})
	}

	result.Summary = domain.ListSummary{
		ScoredCount:      len(result.Books),
		FailedCount:      len(result.Unscored),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	if len(list.Failed) > 0 {
		log.Warn().Str("view", string(kind)).Int("failed", len(list.Failed)).Int("scored", len(list.Entries)).
			Msg("[service] ranking pass left books unscored")
	}
	return result, nil
}

// SelectView returns the book set behind a view kind.
func (s *Service) SelectView(ctx context.Context, kind domain.ViewKind, viewer domain.ViewerID) ([]domain.Book, error) {
	var (
		books []domain.Book
		err   error
	)
	switch kind {
	case domain.ViewAll, "":
		kind = domain.ViewAll
		books, err = s.source.ListBooks(ctx)
	case domain.ViewNotRated:
		books, err = s.source.BooksNotRatedBy(ctx, viewer)
	case domain.ViewNotMentioned:
		books, err = s.source.BooksNotMentionedBy(ctx, viewer)
	case domain.ViewNotHeardBefore:
		books, err = s.source.BooksNotHeardBeforeBy(ctx, viewer)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownView, kind)
	}

	if err != nil {
		log.Error().Err(err).Str("view", string(kind)).Msg("[service] view fetch failed")
		return nil, &domain.ViewFetchError{View: kind, Err: err}
	}
	return books, nil
}

// BookDetails resolves a URL slug such as "the-name-of-the-wind".
func (s *Service) BookDetails(ctx context.Context, slug string) (*domain.Book, error) {
	title := ranking.TitleCase(strings.ReplaceAll(strings.TrimSpace(slug), "-", " "))
	if title == "" {
		return nil, domain.ErrBookNotFound
	}
	return s.source.BookByTitle(ctx, title)
}

func (s *Service) Engagement(ctx context.Context, viewer domain.ViewerID, bookID int64) (*domain.Engagement, error) {
	e, err := s.source.Engagement(ctx, viewer, bookID)
	if err != nil {
		return nil, fmt.Errorf("fetch engagement: %w", err)
	}
	return e, nil
}

// RateBook records the viewer's rating. Callers rebuild the list afterwards.
func (s *Service) RateBook(ctx context.Context, viewer domain.ViewerID, bookID int64, rating int) error {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return domain.ErrInvalidRating
	}
	if err := s.source.SaveRating(ctx, viewer, bookID, rating); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return err
		}
		return fmt.Errorf("save rating: %w", err)
	}
	log.Info().Int64("viewer", int64(viewer)).Int64("book_id", bookID).Int("rating", rating).Msg("[service] rating saved")
	return nil
}

// MentionBook records whether the viewer had heard of the book before.
func (s *Service) MentionBook(ctx context.Context, viewer domain.ViewerID, bookID int64, heardBefore bool) error {
	if err := s.source.SaveMention(ctx, viewer, bookID, heardBefore); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return err
		}
		return fmt.Errorf("save mention: %w", err)
	}
	log.Info().Int64("viewer", int64(viewer)).Int64("book_id", bookID).Bool("heard_before", heardBefore).
		Msg("[service] mention saved")
	return nil
}

// SubmitBook queues a recommendation for moderation. The title is stored
// display-cased so it matches the casing searches and slugs resolve to.
func (s *Service) SubmitBook(ctx context.Context, sub domain.BookSubmission) (*domain.Book, error) {
	sub.Title = ranking.TitleCase(collapseSpaces(sub.Title))
	sub.Author = collapseSpaces(sub.Author)
	sub.Description = strings.TrimSpace(sub.Description)

	exists, err := s.source.BookExists(ctx, sub.Title, sub.Author)
	if err != nil {
		return nil, fmt.Errorf("check duplicate book: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %q by %s", domain.ErrDuplicateBook, sub.Title, sub.Author)
	}

	book, err := s.source.SubmitBook(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateBook) {
			return nil, err
		}
		return nil, fmt.Errorf("submit book: %w", err)
	}
	log.Info().Int64("viewer", int64(sub.SubmittedBy)).Int64("book_id", book.ID).Str("title", book.Title).
		Msg("[service] book submitted for review")
	return book, nil
}

// RecordRead logs a read link click. Signed-out visitors without an id get
// a fresh temporary one, returned on the click.
func (s *Service) RecordRead(ctx context.Context, viewer domain.ViewerID, visitorID string, bookID int64) (domain.ReadClick, error) {
	click := domain.ReadClick{BookID: bookID, Viewer: viewer, ClickedAt: time.Now().UTC()}
	if click.Anonymous() {
		click.VisitorID = visitorID
		if click.VisitorID == "" {
			click.VisitorID = uuid.NewString()
		}
	}

	if err := s.source.RecordReadClick(ctx, click); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return domain.ReadClick{}, err
		}
		return domain.ReadClick{}, fmt.Errorf("record read click: %w", err)
	}
	return click, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func filterFailures(failed []domain.BookFailure, query string) []domain.BookFailure {
	if query == "" {
		return failed
	}
	prefix := strings.ToLower(ranking.TitleCase(query))
	out := make([]domain.BookFailure, 0)
	for _, f := range failed {
		if strings.HasPrefix(strings.ToLower(f.Book.Title), prefix) {
			out = append(out, f)
		}
	}
	return out
}

// Handle per-book errors
func categorizeError(err error) (string, string) {
	if errors.Is(err, domain.ErrInvalidAggregates) {
		return "invalid_aggregates", "engagement data for this book is inconsistent"
	}
	if domain.IsAggregateFetchError(err) {
		return "aggregate_unavailable", "engagement data for this book is temporarily unavailable"
	}
	return "internal_error", "an unexpected error occurred"
}
