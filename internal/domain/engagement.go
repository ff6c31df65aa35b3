package domain

// Engagement is a viewer's own answers for one book.
type Engagement struct {
	BookID      int64 `json:"book_id"`
	Mentioned   bool  `json:"mentioned"`
	HeardBefore *bool `json:"heard_before"`
	Rated       bool  `json:"rated"`
	Rating      *int  `json:"rating"`
}
