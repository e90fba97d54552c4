package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/uzvideohub/videohub-api/internal/middleware"
	"github.com/uzvideohub/videohub-api/internal/pkg/errorhandler"
	"github.com/uzvideohub/videohub-api/internal/pkg/response"
)

const (
	leaderboardCacheKey = "referrals:leaderboard"
	leaderboardCacheTTL = 60 * time.Second
	leaderboardSize     = 20
)

// Handler handles user-facing profile and referral requests.
type Handler struct {
	repo  Repository
	cache *redis.Client // nil when Redis is not configured
}

// NewHandler creates a new user handler
func NewHandler(repo Repository, cache *redis.Client) *Handler {
	return &Handler{repo: repo, cache: cache}
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.OK(w, map[string]interface{}{"user": nil})
		return
	}

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "USER_LOAD_FAILED", "Failed to load profile", err)
		return
	}
	if u == nil {
		response.OK(w, map[string]interface{}{"user": nil})
		return
	}

	response.OK(w, map[string]interface{}{"user": u.ToProfile()})
}

// RefCode handles GET /profile/refcode, generating the code on first request
func (h *Handler) RefCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "Login required")
		return
	}

	code, err := h.repo.EnsureReferralCode(r.Context(), userID)
	if err != nil {
		if err == ErrUserNotFound {
			response.NotFound(w, "User not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "REFCODE_FAILED", "Failed to generate referral code", err)
		return
	}

	response.OK(w, map[string]string{"code": code})
}

// Referrals handles GET /referrals: the public leaderboard plus, for a
// signed-in caller, the list of users they invited.
func (h *Handler) Referrals(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := h.leaderboard(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "LEADERBOARD_FAILED", "Failed to load leaderboard", err)
		return
	}

	myInvites := make([]InvitedUser, 0)
	if userID := middleware.GetUserID(r.Context()); userID != uuid.Nil {
		invited, err := h.repo.ListInvited(r.Context(), userID)
		if err != nil {
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "INVITES_FAILED", "Failed to load invites", err)
			return
		}
		for i := range invited {
			myInvites = append(myInvites, InvitedUser{
				ID:        invited[i].ID,
				Name:      invited[i].Name(),
				Coins:     invited[i].CoinBalance,
				CreatedAt: invited[i].CreatedAt,
			})
		}
	}

	response.OK(w, map[string]interface{}{
		"leaderboard": leaderboard,
		"my_invites":  myInvites,
	})
}

// ListUsers handles GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	users, err := h.repo.List(r.Context(), limit)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "USER_LIST_FAILED", "Failed to list users", err)
		return
	}

	items := make([]*Profile, len(users))
	for i := range users {
		items[i] = users[i].ToProfile()
	}
	response.OK(w, map[string]interface{}{"items": items, "total": len(items)})
}

// leaderboard reads the cached leaderboard, recomputing it on a miss.
// Runs without Redis too, it just hits the database every time.
func (h *Handler) leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	if h.cache != nil {
		if raw, err := h.cache.Get(ctx, leaderboardCacheKey).Bytes(); err == nil {
			var cached []LeaderboardRow
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	rows, err := h.repo.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		name := rows[i].DisplayName.String
		if name == "" {
			name = rows[i].Username.String
		}
		if name == "" {
			name = "#" + rows[i].ID.String()[:8]
		}
		rows[i].Name = name
	}

	if h.cache != nil {
		if raw, err := json.Marshal(rows); err == nil {
			if err := h.cache.Set(ctx, leaderboardCacheKey, raw, leaderboardCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("Failed to cache leaderboard")
			}
		}
	}

	return rows, nil
}
