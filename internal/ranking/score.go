package ranking

import (
	"math"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// HighestScore is the maximum rating a user can give a book.
const HighestScore = domain.MaxRating

// ratingCountExponent is how many times the rating count divides the rating
// sum in the quality component. The published list has always used 2; a
// single-division formula is 1.
const ratingCountExponent = 2

// Components is the breakdown of a weighted score.
type Components = domain.ScoreBreakdown

// ScoreComponents computes both halves of the weighted score. A book nobody
// has engaged with yet has zero for both.
func ScoreComponents(agg domain.Aggregates) Components {
	denominator := agg.Denominator()
	if denominator <= 0 {
		return Components{}
	}

	c := Components{
		Unfamiliarity: float64(agg.NotHeardBefore) / float64(denominator) * 100,
	}
	if agg.RatingCount > 0 {
		divisor := HighestScore * math.Pow(float64(agg.RatingCount), ratingCountExponent)
		c.Quality = float64(agg.RatingSumTotal) / divisor * 100
	}
	return c
}

// WeightedScore ranks how undervalued a book is: the higher, the closer to
// the top of the list.
func WeightedScore(agg domain.Aggregates) float64 {
	c := ScoreComponents(agg)
	score := (c.Unfamiliarity + c.Quality) / 2
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}
