package tribute

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// AnonymousName replaces the submitter name of anonymous tributes.
const AnonymousName = "Anonymous"

// Tribute is a visitor-submitted memorial entry.
type Tribute struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Message    string      `json:"message"`
	Email      null.String `json:"email"`
	Phone      null.String `json:"phone"`
	ImageURL   null.String `json:"image_url"`
	Approved   bool        `json:"approved"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	ApprovedAt null.Time   `json:"approved_at"`
	AdminNotes null.String `json:"admin_notes"`
}

// HasImage reports whether the tribute references an image.
func (t Tribute) HasImage() bool {
	return t.ImageURL.Valid && t.ImageURL.String != ""
}

// Public returns the projection exposed to visitors: no contact details, no admin notes.
func (t Tribute) Public() PublicTribute {
	return PublicTribute{
		ID:         t.ID,
		Name:       t.Name,
		Message:    t.Message,
		ImageURL:   t.ImageURL,
		CreatedAt:  t.CreatedAt,
		ApprovedAt: t.ApprovedAt,
	}
}

type PublicTribute struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Message    string      `json:"message"`
	ImageURL   null.String `json:"image_url"`
	CreatedAt  time.Time   `json:"created_at"`
	ApprovedAt null.Time   `json:"approved_at"`
}

// Upload is an image attached to a submission.
type Upload struct {
	Filename string
	Data     []byte
}

// NewTribute contains the information submitted by a visitor.
type NewTribute struct {
	Name      string `form:"name"`
	Message   string `form:"message"`
	Email     string `form:"email" validate:"omitempty,email,max=254"`
	Phone     string `form:"phone"`
	Anonymous bool   `form:"anonymous"`
	Image     *Upload
}

// Moderation is an administrator decision on a tribute.
// Approved is a pointer so that a missing (or non-boolean) status can be told apart from `false`.
type Moderation struct {
	ID         int64   `json:"id"`
	Approved   *bool   `json:"approved"`
	AdminNotes *string `json:"admin_notes"`
}

// QueryFilter narrows down a tribute listing. Zero value matches everything.
type QueryFilter struct {
	Approved *bool
}
