package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines video data access interface
type Repository interface {
	Create(ctx context.Context, v *Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*Video, error)
	List(ctx context.Context, limit int) ([]Video, error)
	Update(ctx context.Context, v *Video) error
	SetPosterRef(ctx context.Context, id uuid.UUID, posterRef string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new video repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const videoColumns = `id, code, title, description, media_ref, poster_ref, category, tags,
       is_free, price, created_at, updated_at`

// Create creates a new video
func (r *repository) Create(ctx context.Context, v *Video) error {
	query := `
		INSERT INTO videos (id, code, title, description, media_ref, poster_ref, category, tags, is_free, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Code, v.Title, v.Description, v.MediaRef, v.PosterRef,
		v.Category, v.Tags, v.IsFree, v.Price,
	)
	if err != nil {
		return fmt.Errorf("video repository create: %w", err)
	}
	return nil
}

// GetByID returns video by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Video, error) {
	var v Video
	err := r.db.GetContext(ctx, &v, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// List returns videos, newest first
func (r *repository) List(ctx context.Context, limit int) ([]Video, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	videos := make([]Video, 0)
	err := r.db.SelectContext(ctx, &videos,
		`SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("video repository list: %w", err)
	}
	return videos, nil
}

// Update updates all editable fields
func (r *repository) Update(ctx context.Context, v *Video) error {
	query := `
		UPDATE videos
		SET code = $2, title = $3, description = $4, media_ref = $5, poster_ref = $6,
		    category = $7, tags = $8, is_free = $9, price = $10, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.Code, v.Title, v.Description, v.MediaRef, v.PosterRef,
		v.Category, v.Tags, v.IsFree, v.Price,
	)
	if err != nil {
		return fmt.Errorf("video repository update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// SetPosterRef replaces the poster reference after an upload
func (r *repository) SetPosterRef(ctx context.Context, id uuid.UUID, posterRef string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE videos SET poster_ref = $2, updated_at = NOW() WHERE id = $1`,
		id, posterRef,
	)
	if err != nil {
		return fmt.Errorf("video repository set poster: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}

// Delete removes a video
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("video repository delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVideoNotFound
	}
	return nil
}
