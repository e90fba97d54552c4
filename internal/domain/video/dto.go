package video

import (
	"time"

	"github.com/google/uuid"
)

// ListItem is the public catalog representation. Reference strings are not
// exposed; playback goes through /videos/{id}/stream.
type ListItem struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	IsFree      bool      `json:"is_free"`
	Price       int       `json:"price"`
	PosterURL   string    `json:"poster_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdminItem additionally exposes the raw reference strings
type AdminItem struct {
	ListItem
	MediaRef  string    `json:"media_ref"`
	PosterRef string    `json:"poster_ref,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the admin create/update payload
type CreateRequest struct {
	Code        string `json:"code" validate:"max=64"`
	Title       string `json:"title" validate:"required,min=1,max=300"`
	Description string `json:"description" validate:"max=5000"`
	MediaRef    string `json:"media_ref" validate:"required"`
	PosterRef   string `json:"poster_ref"`
	Category    string `json:"category" validate:"max=100"`
	Tags        string `json:"tags" validate:"max=500"`
	IsFree      bool   `json:"is_free"`
	Price       int    `json:"price" validate:"min=0"`
}

// ToListItem converts an entity to its public representation
func (v *Video) ToListItem() *ListItem {
	item := &ListItem{
		ID:          v.ID,
		Code:        v.Code.String,
		Title:       v.Title,
		Description: v.Description,
		Category:    v.Category.String,
		Tags:        v.Tags.String,
		IsFree:      v.IsFree,
		Price:       v.Price,
		CreatedAt:   v.CreatedAt,
	}
	if v.PosterRef.Valid && v.PosterRef.String != "" {
		item.PosterURL = "/api/v1/videos/" + v.ID.String() + "/poster"
	}
	return item
}

// ToAdminItem converts an entity to the admin representation
func (v *Video) ToAdminItem() *AdminItem {
	return &AdminItem{
		ListItem:  *v.ToListItem(),
		MediaRef:  v.MediaRef,
		PosterRef: v.PosterRef.String,
		UpdatedAt: v.UpdatedAt,
	}
}
