package domain

import "time"

// BookSubmission is a viewer's recommendation waiting for moderation.
type BookSubmission struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	SubmittedBy ViewerID
}

// ReadClick records that someone followed a book's read link. Signed-in
// viewers are identified by Viewer, everyone else by a temporary VisitorID.
type ReadClick struct {
	BookID    int64
	Viewer    ViewerID
	VisitorID string
	ClickedAt time.Time
}

// Anonymous reports whether the click came from a signed-out visitor.
func (c ReadClick) Anonymous() bool {
	return c.Viewer == 0
}
