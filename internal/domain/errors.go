package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrInvalidAggregates = errors.New("invalid engagement aggregates")
	ErrUnknownView       = errors.New("unknown view")
	ErrNoTitleMatch      = errors.New("no book title matches the query")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSessionRevoked    = errors.New("session revoked")
	ErrInvalidRating     = errors.New("rating must be between 1 and 10")
	ErrDuplicateBook     = errors.New("book already on the list")
)

// AggregateFetchError reports that one of a book's four aggregate queries failed.
type AggregateFetchError struct {
	BookID    int64
	Aggregate AggregateKind
	Err       error
}

func (e *AggregateFetchError) Error() string {
	return fmt.Sprintf("fetch %s for book %d: %v", e.Aggregate, e.BookID, e.Err)
}

func (e *AggregateFetchError) Unwrap() error {
	return e.Err
}

func IsAggregateFetchError(err error) bool {
	var target *AggregateFetchError
	return errors.As(err, &target)
}

// ViewFetchError reports that a whole book set could not be retrieved.
type ViewFetchError struct {
	View ViewKind
	Err  error
}

func (e *ViewFetchError) Error() string {
	return fmt.Sprintf("fetch %s view: %v", e.View, e.Err)
}

func (e *ViewFetchError) Unwrap() error {
	return e.Err
}

func IsViewFetchError(err error) bool {
	var target *ViewFetchError
	return errors.As(err, &target)
}
