package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/uzvideohub/videohub-api/internal/domain/video"
	"github.com/uzvideohub/videohub-api/internal/middleware"
	"github.com/uzvideohub/videohub-api/internal/pkg/errorhandler"
	"github.com/uzvideohub/videohub-api/internal/pkg/response"
	"github.com/uzvideohub/videohub-api/internal/pkg/validator"
)

// Handler handles purchase and coin HTTP requests.
type Handler struct {
	service       *Service
	bonusReferrer int
	bonusNewUser  int
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service, bonusReferrer, bonusNewUser int) *Handler {
	return &Handler{service: service, bonusReferrer: bonusReferrer, bonusNewUser: bonusNewUser}
}

// Purchase handles POST /purchase
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Purchase(r.Context(), userID, req.VideoID)
	if err != nil {
		switch {
		case errors.Is(err, video.ErrVideoNotFound):
			response.NotFound(w, "Video not found")
		case errors.Is(err, ErrInsufficientBalance):
			response.Error(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", "Not enough coins")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "PURCHASE_FAILED", "Failed to process purchase", err)
		}
		return
	}

	response.OK(w, result)
}

// CheckPurchase handles GET /purchase/check?id=<video_id>
func (h *Handler) CheckPurchase(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	videoID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		response.BadRequest(w, "Invalid video ID")
		return
	}

	v, err := h.service.videos.GetByID(r.Context(), videoID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "PURCHASE_CHECK_FAILED", "Failed to check purchase", err)
		return
	}
	if v == nil {
		response.NotFound(w, "Video not found")
		return
	}

	owned, err := h.service.repo.HasPurchase(r.Context(), userID, videoID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "PURCHASE_CHECK_FAILED", "Failed to check purchase", err)
		return
	}

	response.OK(w, map[string]interface{}{
		"owned":   owned,
		"price":   v.Price,
		"is_free": v.IsFree,
	})
}

// MyPurchases handles GET /my/purchases
func (h *Handler) MyPurchases(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	purchases, err := h.service.ListPurchases(r.Context(), userID)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "PURCHASE_LIST_FAILED", "Failed to list purchases", err)
		return
	}

	response.OK(w, map[string]interface{}{"items": purchases, "total": len(purchases)})
}

// MyTransactions handles GET /my/coins/history
func (h *Handler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	txs, err := h.service.ListTransactions(r.Context(), userID, parseLimit(r))
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "HISTORY_FAILED", "Failed to list transactions", err)
		return
	}

	response.OK(w, map[string]interface{}{"items": txs, "total": len(txs)})
}

// Adjust handles POST /api/admin/coins
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	balance, err := h.service.Adjust(r.Context(), adminID, req.UserID, req.Delta, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDelta):
			response.BadRequest(w, "Delta must not be zero")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		case errors.Is(err, ErrInsufficientBalance):
			response.Conflict(w, "Adjustment would make the balance negative")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "ADJUST_FAILED", "Failed to adjust coins", err)
		}
		return
	}

	response.OK(w, map[string]interface{}{"user_id": req.UserID, "balance": balance})
}

// AttachReferral handles POST /referral/attach. The caller attaches a
// referral code to their own account; repeat calls succeed with
// attached=false.
func (h *Handler) AttachReferral(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req AttachReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.UserID == uuid.Nil {
		req.UserID = userID
	}
	if req.UserID != userID && !middleware.GetIsAdmin(r.Context()) {
		response.Forbidden(w, "Cannot attach a referral for another user")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.AttachReferral(r.Context(), req.UserID, req.ReferralCode, h.bonusReferrer, h.bonusNewUser)
	if err != nil {
		switch {
		case errors.Is(err, ErrReferrerNotFound):
			response.NotFound(w, "Referral code not found")
		case errors.Is(err, ErrSelfReferral):
			response.BadRequest(w, "Cannot use your own referral code")
		default:
			errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "REFERRAL_FAILED", "Failed to attach referral", err)
		}
		return
	}

	response.OK(w, result)
}

// History handles GET /api/admin/coins/history. With ?user_id= it narrows
// to one user, otherwise it returns the most recent entries across all.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	var (
		txs []CoinTransaction
		err error
	)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			response.BadRequest(w, "Invalid user ID")
			return
		}
		txs, err = h.service.ListTransactions(r.Context(), userID, limit)
	} else {
		txs, err = h.service.ListAllTransactions(r.Context(), limit)
	}
	if err != nil {
		errorhandler.HandleError(r.Context(), w, http.StatusInternalServerError, "HISTORY_FAILED", "Failed to list transactions", err)
		return
	}

	response.OK(w, map[string]interface{}{"items": txs, "total": len(txs)})
}

func parseLimit(r *http.Request) int {
	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	return limit
}
