package domain

// Book is one approved recommendation. Titles are stored display-cased.
type Book struct {
	ID           int64   `json:"book_id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Description  string  `json:"description"`
	ReadBookLink *string `json:"read_book_link"`
}

// HasReadLink reports whether the book carries a usable read link.
func (b Book) HasReadLink() bool {
	return b.ReadBookLink != nil && *b.ReadBookLink != ""
}
