package handler

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

type BookListResponse struct {
	*domain.BookListResult
	Metadata ListMeta `json:"metadata"`
}

type ListMeta struct {
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type BookResponse struct {
	Book              *domain.Book `json:"book"`
	ReadLinkAvailable bool         `json:"read_link_available"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type RateRequest struct {
	Rating int `json:"rating"`
}

func (r RateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rating, validation.Required, validation.Min(domain.MinRating), validation.Max(domain.MaxRating)),
	)
}

type MentionRequest struct {
	HeardBefore *bool `json:"heard_before"`
}

func (r MentionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.HeardBefore, validation.NotNil),
	)
}

var linkPattern = regexp.MustCompile(`(?i)(https?://|www\.)`)

var noLinks = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if linkPattern.MatchString(s) {
		return errors.New("should not contain website links")
	}
	return nil
})

// noAccents rejects combining diacritical marks.
var noAccents = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if r >= 0x0300 && r <= 0x036f {
			return errors.New("should not contain accents")
		}
	}
	return nil
})

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

type SubmitBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

func (r SubmitBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, notBlank, validation.Length(1, 200), noLinks, noAccents),
		validation.Field(&r.Author, notBlank, validation.Length(1, 200), noLinks, noAccents),
		validation.Field(&r.Description, notBlank, validation.Length(1, 2000), noLinks, noAccents),
	)
}

type SubmitBookResponse struct {
	Book   *domain.Book `json:"book"`
	Status string       `json:"status"`
}

var visitorID = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a UUID")
	}
	return nil
})

type ReadClickResponse struct {
	BookID    int64  `json:"book_id"`
	VisitorID string `json:"visitor_id,omitempty"`
}
