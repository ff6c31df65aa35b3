package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

func (r *Repository) NotHeardBeforeCount(ctx context.Context, bookID int64) (int64, error) {
	return r.count(ctx, fmt.Sprintf("count not heard before for book %d", bookID),
		`SELECT COUNT(*) FROM mentions WHERE book_id = $1 AND NOT mentioned`, bookID)
}

func (r *Repository) HeardNotRatedCount(ctx context.Context, bookID int64) (int64, error) {
	return r.count(ctx, fmt.Sprintf("count heard not rated for book %d", bookID),
		`SELECT COUNT(*)
		FROM mentions m
		LEFT JOIN ratings r ON r.book_id = m.book_id AND r.user_id = m.user_id
		WHERE m.book_id = $1 AND m.mentioned AND r.user_id IS NULL`, bookID)
}

func (r *Repository) RatingCount(ctx context.Context, bookID int64) (int64, error) {
	return r.count(ctx, fmt.Sprintf("count ratings for book %d", bookID),
		`SELECT COUNT(*) FROM ratings WHERE book_id = $1`, bookID)
}

func (r *Repository) RatingSumTotal(ctx context.Context, bookID int64) (int64, error) {
	return r.count(ctx, fmt.Sprintf("sum ratings for book %d", bookID),
		`SELECT COALESCE(SUM(rating), 0) FROM ratings WHERE book_id = $1`, bookID)
}

// Create or replace the viewer's rating
func (r *Repository) SaveRating(ctx context.Context, viewer domain.ViewerID, bookID int64, rating int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ratings (user_id, book_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = NOW()`,
		int64(viewer), bookID, rating,
	)
	if err != nil {
		if isMissingBook(err) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("save rating for book %d: %w", bookID, err)
	}
	return nil
}

// Create or replace the viewer's heard-before answer
func (r *Repository) SaveMention(ctx context.Context, viewer domain.ViewerID, bookID int64, heardBefore bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO mentions (user_id, book_id, mentioned)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET mentioned = EXCLUDED.mentioned, updated_at = NOW()`,
		int64(viewer), bookID, heardBefore,
	)
	if err != nil {
		if isMissingBook(err) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("save mention for book %d: %w", bookID, err)
	}
	return nil
}

func (r *Repository) Engagement(ctx context.Context, viewer domain.ViewerID, bookID int64) (*domain.Engagement, error) {
	e := &domain.Engagement{BookID: bookID}

	err := r.pool.QueryRow(ctx,
		`SELECT mentioned FROM mentions WHERE user_id = $1 AND book_id = $2`,
		int64(viewer), bookID,
	).Scan(&e.HeardBefore)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query mention for book %d: %w", bookID, err)
	default:
		e.Mentioned = true
	}

	err = r.pool.QueryRow(ctx,
		`SELECT rating FROM ratings WHERE user_id = $1 AND book_id = $2`,
		int64(viewer), bookID,
	).Scan(&e.Rating)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query rating for book %d: %w", bookID, err)
	default:
		e.Rated = true
	}

	return e, nil
}
