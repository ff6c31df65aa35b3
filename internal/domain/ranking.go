package domain

// ScoredBook pairs a book with the weighted score computed in one ranking pass.
type ScoredBook struct {
	Book
	Score     float64        `json:"weighted_score"`
	Breakdown ScoreBreakdown `json:"-"`
}

// ScoreBreakdown holds the two halves a weighted score averages.
type ScoreBreakdown struct {
	Unfamiliarity float64 `json:"unfamiliarity"`
	Quality       float64 `json:"quality"`
}

// BookFailure records a book whose score could not be computed in a pass.
type BookFailure struct {
	Book Book
	Err  error
}

// RankedList is the outcome of one full ranking pass. Entries are sorted by
// score descending; Failed holds the books whose aggregates were unavailable.
type RankedList struct {
	Entries []ScoredBook
	Failed  []BookFailure
}
