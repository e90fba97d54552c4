package video

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Video is a catalog item. MediaRef and PosterRef are polymorphic reference
// strings: a direct URL, a "tg:"-prefixed (or bare) Telegram file id, or a
// Yandex Disk public link. They are classified and resolved by the media
// domain, never interpreted here.
type Video struct {
	ID          uuid.UUID      `db:"id"`
	Code        sql.NullString `db:"code"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	MediaRef    string         `db:"media_ref"`
	PosterRef   sql.NullString `db:"poster_ref"`
	Category    sql.NullString `db:"category"`
	Tags        sql.NullString `db:"tags"`
	IsFree      bool           `db:"is_free"`
	Price       int            `db:"price"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}
