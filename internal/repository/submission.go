package repository

import (
	"context"
	"fmt"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// BookExists checks approved and pending books alike.
func (r *Repository) BookExists(ctx context.Context, title, author string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM books WHERE lower(title) = lower($1) AND lower(author) = lower($2)
		)`, title, author,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check book title=%q author=%q: %w", title, author, err)
	}
	return exists, nil
}

// SubmitBook stores a recommendation as unapproved.
func (r *Repository) SubmitBook(ctx context.Context, s domain.BookSubmission) (*domain.Book, error) {
	b := &domain.Book{}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO books (title, author, description, approved, submitted_by)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING book_id, title, author, description, read_book_link`,
		s.Title, s.Author, s.Description, int64(s.SubmittedBy),
	).Scan(&b.ID, &b.Title, &b.Author, &b.Description, &b.ReadBookLink)
	if err != nil {
		if isDuplicate(err) {
			return nil, domain.ErrDuplicateBook
		}
		return nil, fmt.Errorf("insert book title=%q: %w", s.Title, err)
	}
	return b, nil
}

func (r *Repository) RecordReadClick(ctx context.Context, c domain.ReadClick) error {
	var viewer *int64
	var visitor *string
	if c.Anonymous() {
		visitor = &c.VisitorID
	} else {
		id := int64(c.Viewer)
		viewer = &id
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO read_clicks (book_id, user_id, visitor_id, clicked_at)
		VALUES ($1, $2, $3, $4)`,
		c.BookID, viewer, visitor, c.ClickedAt,
	)
	if err != nil {
		if isMissingBook(err) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("record read click for book %d: %w", c.BookID, err)
	}
	return nil
}
