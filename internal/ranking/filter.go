package ranking

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// TitleCase lowercases s and capitalizes the first letter of every
// space-separated word. Stored titles follow the same convention.
func TitleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// FilterByTitlePrefix keeps the entries whose title starts with query,
// ignoring case. Order is preserved. An empty query returns entries as is.
func FilterByTitlePrefix(entries []domain.ScoredBook, query string) []domain.ScoredBook {
	if query == "" {
		return entries
	}

	prefix := strings.ToLower(TitleCase(query))
	matches := make([]domain.ScoredBook, 0)
	for _, e := range entries {
		if strings.HasPrefix(strings.ToLower(e.Title), prefix) {
			matches = append(matches, e)
		}
	}
	return matches
}
