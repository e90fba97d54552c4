package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/uzvideohub/videohub-api/internal/middleware"
)

func doPurchase(t *testing.T, h *Handler, userID, videoID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(PurchaseRequest{VideoID: videoID})
	req := httptest.NewRequest(http.MethodPost, "/purchase", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	rr := httptest.NewRecorder()

	h.Purchase(rr, req)
	return rr
}

func TestPurchaseHandlerSuccessAndRepeat(t *testing.T) {
	repo := newFakeRepo()
	users, videos, userID, videoID := seed(repo, 20, 15, false)
	h := NewHandler(newTestService(repo, users, videos, nil), 5, 3)

	rr := doPurchase(t, h, userID, videoID)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			AlreadyOwned bool `json:"already_owned"`
			Balance      int  `json:"balance"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Success || out.Data.AlreadyOwned || out.Data.Balance != 5 {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}

	rr = doPurchase(t, h, userID, videoID)
	if rr.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Data.AlreadyOwned || out.Data.Balance != 5 {
		t.Fatalf("unexpected repeat response: %s", rr.Body.String())
	}
}

func TestPurchaseHandlerInsufficientBalance(t *testing.T) {
	repo := newFakeRepo()
	users, videos, userID, videoID := seed(repo, 10, 15, false)
	h := NewHandler(newTestService(repo, users, videos, nil), 5, 3)

	rr := doPurchase(t, h, userID, videoID)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Error.Code != "INSUFFICIENT_BALANCE" {
		t.Fatalf("error code = %q, want INSUFFICIENT_BALANCE", out.Error.Code)
	}
}

func TestPurchaseHandlerUnknownVideo(t *testing.T) {
	repo := newFakeRepo()
	users, videos, userID, _ := seed(repo, 10, 15, false)
	h := NewHandler(newTestService(repo, users, videos, nil), 5, 3)

	rr := doPurchase(t, h, userID, uuid.New())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestAdjustHandlerRejectsZeroDelta(t *testing.T) {
	repo := newFakeRepo()
	users, videos, userID, _ := seed(repo, 10, 15, false)
	h := NewHandler(newTestService(repo, users, videos, nil), 5, 3)

	body, _ := json.Marshal(map[string]interface{}{"user_id": userID, "delta": 0})
	req := httptest.NewRequest(http.MethodPost, "/coins", bytes.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr := httptest.NewRecorder()

	h.Adjust(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
