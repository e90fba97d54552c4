package media

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/domain/ledger"
	"github.com/uzvideohub/videohub-api/internal/domain/video"
	"github.com/uzvideohub/videohub-api/internal/middleware"
	"github.com/uzvideohub/videohub-api/internal/pkg/errorhandler"
	"github.com/uzvideohub/videohub-api/internal/pkg/response"
)

// Handler streams media through the proxy, gating paid videos on purchase.
type Handler struct {
	resolver *Resolver
	proxy    *Proxy
	videos   video.Repository
	ledger   *ledger.Service
	logger   zerolog.Logger
}

func NewHandler(resolver *Resolver, proxy *Proxy, videos video.Repository, ledgerSvc *ledger.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		proxy:    proxy,
		videos:   videos,
		ledger:   ledgerSvc,
		logger:   logger,
	}
}

// ProxyMedia handles GET /media-proxy with either ?src=<url> or
// ?file_id=<id>. No access check: the endpoint only relays from
// allow-listed hosts, which do not serve gated content directly.
func (h *Handler) ProxyMedia(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	fileID := r.URL.Query().Get("file_id")

	var (
		origin string
		err    error
	)
	switch {
	case fileID != "":
		origin, err = h.resolver.Resolve(r.Context(), "tg:"+fileID)
		if err != nil {
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "RESOLVE_FAILED", "Failed to resolve file", err)
			return
		}
	case src != "":
		origin = src
	default:
		response.BadRequest(w, "Either src or file_id is required")
		return
	}

	h.stream(w, r, origin)
}

// StreamVideo handles GET /videos/{id}/stream.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadVideo(w, r)
	if !ok {
		return
	}

	if !h.gate(w, r, v) {
		return
	}

	origin, err := h.resolver.Resolve(r.Context(), v.MediaRef)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "RESOLVE_FAILED", "Failed to resolve media", err)
		return
	}

	h.stream(w, r, origin)
}

// StreamPoster handles GET /videos/{id}/poster. Posters are not gated,
// the catalog shows them to everyone.
func (h *Handler) StreamPoster(w http.ResponseWriter, r *http.Request) {
	v, ok := h.loadVideo(w, r)
	if !ok {
		return
	}
	if !v.PosterRef.Valid || v.PosterRef.String == "" {
		response.NotFound(w, "Video has no poster")
		return
	}

	origin, err := h.resolver.Resolve(r.Context(), v.PosterRef.String)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "RESOLVE_FAILED", "Failed to resolve poster", err)
		return
	}

	h.stream(w, r, origin)
}

// gate enforces free-or-purchased before any bytes move.
func (h *Handler) gate(w http.ResponseWriter, r *http.Request, v *video.Video) bool {
	userID := middleware.GetUserID(r.Context())

	allowed, err := h.ledger.HasAccess(r.Context(), userID, v)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "ACCESS_CHECK_FAILED", "Failed to check access", err)
		return false
	}
	if !allowed {
		if userID == uuid.Nil {
			response.Unauthorized(w, "Sign in to watch this video")
		} else {
			response.Error(w, http.StatusPaymentRequired, "PURCHASE_REQUIRED", "Purchase this video to watch it")
		}
		return false
	}
	return true
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, origin string) {
	err := h.proxy.Stream(w, r, origin)
	if err == nil {
		return
	}

	var upstream *UpstreamError
	switch {
	case errors.Is(err, ErrHostNotAllowed):
		response.BadRequest(w, "Host is not allowed")
	case errors.As(err, &upstream):
		h.logger.Warn().
			Str("url", upstream.URL).
			Int("status", upstream.Status).
			Str("excerpt", upstream.Excerpt).
			Msg("upstream returned an error")
		response.BadGateway(w, "Upstream returned an error")
	default:
		errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "PROXY_FAILED", "Failed to fetch media", err)
	}
}

func (h *Handler) loadVideo(w http.ResponseWriter, r *http.Request) (*video.Video, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid video ID")
		return nil, false
	}

	v, err := h.videos.GetByID(r.Context(), id)
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
