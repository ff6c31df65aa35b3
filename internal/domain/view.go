package domain

import "fmt"

// ViewerID is the opaque identity of an authenticated user.
type ViewerID int64

// ViewKind selects the dashboard pre-filter.
type ViewKind string

const (
	ViewAll            ViewKind = "all"
	ViewNotRated       ViewKind = "notRated"
	ViewNotMentioned   ViewKind = "notMentioned"
	ViewNotHeardBefore ViewKind = "notHeardBefore"
)

// ParseViewKind maps a query value onto a ViewKind. Empty means ViewAll.
func ParseViewKind(s string) (ViewKind, error) {
	switch ViewKind(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewNotRated, ViewNotMentioned, ViewNotHeardBefore:
		return ViewKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}
