package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/index"
)

// CreateChapterRequest is the request body for creating a chapter. The
// ciphertext is sealed by the author before upload.
type CreateChapterRequest struct {
	Number     int      `json:"number" example:"1"`
	Title      string   `json:"title" example:"Arrival"`
	Tags       []string `json:"tags,omitempty"`
	Ciphertext string   `json:"ciphertext" example:"q83vEjRWeJA="`
}

// Validate validates the request.
func (r *CreateChapterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Number, validation.Required, validation.Min(1)),
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Ciphertext, validation.Required),
	)
}

// UpdateChapterRequest is the request body for replacing a chapter.
// Omitted title and tags keep their stored values.
type UpdateChapterRequest struct {
	Title      string   `json:"title,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Ciphertext string   `json:"ciphertext"`
}

// Validate validates the request.
func (r *UpdateChapterRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Ciphertext, validation.Required),
	)
}

// ChapterDetail is the full chapter response type (aliased from the domain layer).
type ChapterDetail = chapter.Detail

// ChapterListItem is a catalog entry (aliased from the domain layer).
type ChapterListItem = chapter.ListItem

// ChapterListResponse wraps paginated chapter listings.
type ChapterListResponse struct {
	Chapters []ChapterListItem `json:"chapters"`
	Total    int               `json:"total" example:"42"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}
