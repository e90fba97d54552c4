package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/uzvideohub/videohub-api/internal/middleware"
	"github.com/uzvideohub/videohub-api/internal/pkg/errorhandler"
	"github.com/uzvideohub/videohub-api/internal/pkg/response"
	"github.com/uzvideohub/videohub-api/internal/pkg/validator"
)

// Handler handles sign-in HTTP requests.
type Handler struct {
	service      *Service
	cookieTTL    time.Duration
	cookieSecure bool
}

// NewHandler creates a new auth handler
func NewHandler(service *Service, cookieTTL time.Duration, cookieSecure bool) *Handler {
	return &Handler{service: service, cookieTTL: cookieTTL, cookieSecure: cookieSecure}
}

// SignIn handles POST /auth/telegram
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.SignIn(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInitData):
			response.Unauthorized(w, "Invalid sign-in data")
		case errors.Is(err, ErrExpiredInitData):
			response.Unauthorized(w, "Sign-in data expired, reopen the app")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "SIGNIN_FAILED", "Failed to sign in", err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	response.OK(w, result)
}

// SignOut handles POST /auth/logout
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	response.NoContent(w)
}
