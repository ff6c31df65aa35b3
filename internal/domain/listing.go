package domain

const (
	StatusScored = "scored"
	StatusFailed = "failed"
)

// RankedBookResult is one row of a ranked book list.
type RankedBookResult struct {
	Rank int `json:"rank"`
	Book
	ReadLinkAvailable bool            `json:"read_link_available"`
	WeightedScore     float64         `json:"weighted_score"`
	Breakdown         *ScoreBreakdown `json:"breakdown,omitempty"`
}

// UnscoredBookResult is a book whose score is unavailable in this pass.
type UnscoredBookResult struct {
	BookID  int64  `json:"book_id"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ListSummary struct {
	ScoredCount      int   `json:"scored_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// BookListResult is a ranked, optionally filtered view of the book list.
type BookListResult struct {
	View     ViewKind             `json:"view"`
	Query    string               `json:"query,omitempty"`
	Books    []RankedBookResult   `json:"books"`
	Unscored []UnscoredBookResult `json:"unscored,omitempty"`
	Summary  ListSummary          `json:"summary"`
}
