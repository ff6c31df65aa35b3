package ranking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// AggregateSource answers the four per-book engagement queries.
type AggregateSource interface {
	NotHeardBeforeCount(ctx context.Context, bookID int64) (int64, error)
	HeardNotRatedCount(ctx context.Context, bookID int64) (int64, error)
	RatingCount(ctx context.Context, bookID int64) (int64, error)
	RatingSumTotal(ctx context.Context, bookID int64) (int64, error)
}

// Builder turns a set of books into a RankedList.
type Builder struct {
	source      AggregateSource
	concurrency int
	recorder    Recorder
}

func NewBuilder(source AggregateSource, opts ...Option) *Builder {
	b := &Builder{
		source:      source,
		concurrency: defaultConcurrency,
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type bookOutcome struct {
	score     float64
	breakdown Components
	err       error
}

// Build fetches fresh aggregates for every book, scores them and sorts the
// result. A book whose aggregates cannot be fetched is reported in Failed
// instead of being scored. Build only returns an error when ctx ends before
// the pass completes, in which case no partial list is returned.
func (b *Builder) Build(ctx context.Context, books []domain.Book) (*domain.RankedList, error) {
	start := time.Now()

	outcomes := make([]bookOutcome, len(books))
	var wg sync.WaitGroup
	sem := make(chan struct{}, b.concurrency)

	for i, book := range books {
		wg.Add(1)
		go func(idx int, bookID int64) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				outcomes[idx] = bookOutcome{err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			agg, err := b.scoreBook(ctx, bookID)
			if err != nil {
				outcomes[idx] = bookOutcome{err: err}
				return
			}
			outcomes[idx] = bookOutcome{score: WeightedScore(agg), breakdown: ScoreComponents(agg)}
		}(i, book.ID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := &domain.RankedList{
		Entries: make([]domain.ScoredBook, 0, len(books)),
	}
	for i, o := range outcomes {
		if o.err != nil {
			list.Failed = append(list.Failed, domain.BookFailure{Book: books[i], Err: o.err})
			continue
		}
		list.Entries = append(list.Entries, domain.ScoredBook{Book: books[i], Score: o.score, Breakdown: o.breakdown})
	}

	SortByScore(list.Entries)

	b.recorder.ObservePass(time.Since(start), len(list.Entries), len(list.Failed))
	return list, nil
}

// scoreBook returns the validated aggregates of one book.
func (b *Builder) scoreBook(ctx context.Context, bookID int64) (domain.Aggregates, error) {
	agg, err := b.FetchAggregates(ctx, bookID)
	if err != nil {
		return domain.Aggregates{}, err
	}
	if err := agg.Validate(); err != nil {
		log.Warn().Err(err).Int64("book_id", bookID).Msg("discarding book with inconsistent aggregates")
		return domain.Aggregates{}, err
	}
	return agg, nil
}

// FetchAggregates issues the four aggregate queries for one book concurrently
// and waits for all of them. The first failure cancels the others.
func (b *Builder) FetchAggregates(ctx context.Context, bookID int64) (domain.Aggregates, error) {
	var agg domain.Aggregates
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(kind domain.AggregateKind, dst *int64, query func(context.Context, int64) (int64, error)) {
		g.Go(func() error {
			v, err := query(gctx, bookID)
			if err != nil {
				if gctx.Err() == nil {
					b.recorder.ObserveFetchFailure(string(kind))
					log.Warn().Err(err).Int64("book_id", bookID).Str("aggregate", string(kind)).
						Msg("aggregate fetch failed")
				}
				return &domain.AggregateFetchError{BookID: bookID, Aggregate: kind, Err: err}
			}
			*dst = v
			return nil
		})
	}

	fetch(domain.AggregateNotHeardBefore, &agg.NotHeardBefore, b.source.NotHeardBeforeCount)
	fetch(domain.AggregateHeardNotRated, &agg.HeardNotRated, b.source.HeardNotRatedCount)
	fetch(domain.AggregateRatingCount, &agg.RatingCount, b.source.RatingCount)
	fetch(domain.AggregateRatingSum, &agg.RatingSumTotal, b.source.RatingSumTotal)

	if err := g.Wait(); err != nil {
		return domain.Aggregates{}, err
	}
	return agg, nil
}

// SortByScore orders entries by score descending, breaking ties by book id
// ascending so that equal scores always come out in the same order.
func SortByScore(entries []domain.ScoredBook) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})
}
