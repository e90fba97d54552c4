package video

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/uzvideohub/videohub-api/internal/pkg/errorhandler"
	"github.com/uzvideohub/videohub-api/internal/pkg/response"
	"github.com/uzvideohub/videohub-api/internal/pkg/storage"
	"github.com/uzvideohub/videohub-api/internal/pkg/validator"
)

const (
	maxPosterBytes  = 10 << 20 // 10 MiB upload cap
	posterMaxSide   = 640
	posterUploadTTL = 30 * time.Second
)

// Handler handles video catalog HTTP requests.
type Handler struct {
	repo    Repository
	posters *storage.PosterStorage // nil when poster storage is not configured
}

// NewHandler creates a new video handler
func NewHandler(repo Repository, posters *storage.PosterStorage) *Handler {
	return &Handler{repo: repo, posters: posters}
}

// List handles GET /videos
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	videos, err := h.repo.List(r.Context(), limit)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_LIST_FAILED", "Failed to list videos", err)
		return
	}

	items := make([]*ListItem, len(videos))
	for i := range videos {
		items[i] = videos[i].ToListItem()
	}
	response.OK(w, map[string]interface{}{"items": items, "total": len(items)})
}

// Get handles GET /videos/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadVideo(w, r)
	if !ok {
		return
	}
	response.OK(w, map[string]interface{}{"item": v.ToListItem()})
}

// AdminList handles GET /api/admin/videos
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	videos, err := h.repo.List(r.Context(), 0)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_LIST_FAILED", "Failed to list videos", err)
		return
	}

	items := make([]*AdminItem, len(videos))
	for i := range videos {
		items[i] = videos[i].ToAdminItem()
	}
	response.OK(w, map[string]interface{}{"items": items, "total": len(items)})
}

// Create handles POST /api/admin/videos
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	v := &Video{ID: uuid.New()}
	applyRequest(v, req)

	if err := h.repo.Create(r.Context(), v); err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_CREATE_FAILED", "Failed to create video", err)
		return
	}

	response.Created(w, map[string]interface{}{"item": v.ToAdminItem()})
}

// Update handles PATCH /api/admin/videos/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeBody(w, r)
	if !ok {
		return
	}
	applyRequest(v, req)

	if err := h.repo.Update(r.Context(), v); err != nil {
		if err == ErrVideoNotFound {
			response.NotFound(w, "Video not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_UPDATE_FAILED", "Failed to update video", err)
		return
	}

	response.OK(w, map[string]interface{}{"item": v.ToAdminItem()})
}

// Delete handles DELETE /api/admin/videos/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid video ID")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if err == ErrVideoNotFound {
			response.NotFound(w, "Video not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_DELETE_FAILED", "Failed to delete video", err)
		return
	}

	response.NoContent(w)
}

// UploadPoster handles POST /api/admin/videos/{id}/poster. The image is
// re-encoded to a bounded JPEG thumbnail before it is stored, so oversized
// or exotic uploads never reach the bucket.
func (h *Handler) UploadPoster(w http.ResponseWriter, r *http.Request) {
	if h.posters == nil {
		response.Error(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Poster storage is not configured")
		return
	}

	v, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPosterBytes)
	file, _, err := r.FormFile("poster")
	if err != nil {
		response.BadRequest(w, "Missing poster file")
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		response.BadRequest(w, "Unsupported image format")
		return
	}
	thumb := imaging.Fit(img, posterMaxSide, posterMaxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "POSTER_ENCODE_FAILED", "Failed to encode poster", err)
		return
	}

	key := "posters/" + v.ID.String() + ".jpg"
	ctx, cancel := context.WithTimeout(r.Context(), posterUploadTTL)
	defer cancel()

	if err := h.posters.Put(ctx, key, &buf, "image/jpeg"); err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "POSTER_UPLOAD_FAILED", "Failed to store poster", err)
		return
	}

	posterURL := h.posters.URL(key)
	if err := h.repo.SetPosterRef(r.Context(), v.ID, posterURL); err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "POSTER_SAVE_FAILED", "Failed to save poster reference", err)
		return
	}

	response.OK(w, map[string]string{"poster_ref": posterURL})
}

func (h *Handler) loadVideo(w http.ResponseWriter, r *http.Request) (*Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid video ID")
		return nil, false
	}

	v, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "VIDEO_LOAD_FAILED", "Failed to load video", err)
		return nil, false
	}
	if v == nil {
		response.NotFound(w, "Video not found")
		return nil, false
	}
	return v, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (*CreateRequest, bool) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return nil, false
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return nil, false
	}
	if !req.IsFree && req.Price <= 0 {
		response.BadRequest(w, "Paid videos require a price greater than 0")
		return nil, false
	}
	return &req, true
}

func applyRequest(v *Video, req *CreateRequest) {
	v.Code = nullString(req.Code)
	v.Title = req.Title
	v.Description = req.Description
	v.MediaRef = req.MediaRef
	v.PosterRef = nullString(req.PosterRef)
	v.Category = nullString(req.Category)
	v.Tags = nullString(req.Tags)
	v.IsFree = req.IsFree
	v.Price = req.Price
	if v.IsFree {
		v.Price = 0
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
