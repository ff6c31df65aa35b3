package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

const bookColumns = `b.book_id, b.title, b.author, b.description, b.read_book_link`

// All approved books
func (r *Repository) ListBooks(ctx context.Context) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.approved
		ORDER BY b.book_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	return scanBooks(rows)
}

// Single approved book by its display-cased title
func (r *Repository) BookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	b := &domain.Book{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.approved AND b.title = $1
		ORDER BY b.book_id
		LIMIT 1`, title,
	).Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.ReadBookLink)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("query book title=%q: %w", title, err)
	}
	return b, nil
}

// Books the viewer has not rated yet
func (r *Repository) BooksNotRatedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.approved
			AND NOT EXISTS (
				SELECT 1 FROM ratings r WHERE r.book_id = b.book_id AND r.user_id = $1
			)
		ORDER BY b.book_id`, int64(viewer),
	)
	if err != nil {
		return nil, fmt.Errorf("query books not rated by %d: %w", viewer, err)
	}
	return scanBooks(rows)
}

// Books the viewer has not answered the heard-before question for
func (r *Repository) BooksNotMentionedBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.approved
			AND NOT EXISTS (
				SELECT 1 FROM mentions m WHERE m.book_id = b.book_id AND m.user_id = $1
			)
		ORDER BY b.book_id`, int64(viewer),
	)
	if err != nil {
		return nil, fmt.Errorf("query books not mentioned by %d: %w", viewer, err)
	}
	return scanBooks(rows)
}

// Books the viewer said they had never heard of
func (r *Repository) BooksNotHeardBeforeBy(ctx context.Context, viewer domain.ViewerID) ([]domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		JOIN mentions m ON m.book_id = b.book_id AND m.user_id = $1
		WHERE b.approved AND NOT m.mentioned
		ORDER BY b.book_id`, int64(viewer),
	)
	if err != nil {
		return nil, fmt.Errorf("query books not heard before by %d: %w", viewer, err)
	}
	return scanBooks(rows)
}
