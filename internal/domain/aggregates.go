package domain

import (
	"fmt"
	"math"
)

const (
	MinRating = 1
	MaxRating = 10

	maxScorableRatings = math.MaxInt64 / MaxRating
)

// AggregateKind names one of the four per-book engagement counters.
type AggregateKind string

const (
	AggregateNotHeardBefore AggregateKind = "not_heard_before_count"
	AggregateHeardNotRated  AggregateKind = "heard_not_rated_count"
	AggregateRatingCount    AggregateKind = "rating_count"
	AggregateRatingSum      AggregateKind = "rating_sum_total"
)

// Aggregates holds the engagement counters of a single book as reported by the
// data service at one point in time.
type Aggregates struct {
	NotHeardBefore int64 `json:"not_heard_before_count"`
	HeardNotRated  int64 `json:"heard_not_rated_count"`
	RatingCount    int64 `json:"rating_count"`
	RatingSumTotal int64 `json:"rating_sum_total"`
}

// Denominator is the number of engaged users across all three signals.
func (a Aggregates) Denominator() int64 {
	return a.NotHeardBefore + a.HeardNotRated + a.RatingCount
}

// Validate checks the counters against the bounds the data service guarantees.
func (a Aggregates) Validate() error {
	if a.NotHeardBefore < 0 || a.HeardNotRated < 0 || a.RatingCount < 0 || a.RatingSumTotal < 0 {
		return fmt.Errorf("%w: negative counter in %+v", ErrInvalidAggregates, a)
	}
	// past maxScorableRatings every int64 sum is within bounds
	if a.RatingCount <= maxScorableRatings && a.RatingSumTotal > a.RatingCount*MaxRating {
		return fmt.Errorf("%w: rating sum %d exceeds %d ratings of at most %d",
			ErrInvalidAggregates, a.RatingSumTotal, a.RatingCount, MaxRating)
	}
	return nil
}
