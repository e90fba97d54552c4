package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/domain/ledger"
	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/domain/video"
	"github.com/uzvideohub/videohub-api/internal/middleware"
)

type stubVideos struct {
	videos map[uuid.UUID]*video.Video
}

func (s *stubVideos) GetByID(_ context.Context, id uuid.UUID) (*video.Video, error) {
	return s.videos[id], nil
}
func (s *stubVideos) Create(context.Context, *video.Video) error { return nil }
func (s *stubVideos) List(context.Context, int) ([]video.Video, error) {
	return nil, nil
}
func (s *stubVideos) Update(context.Context, *video.Video) error            { return nil }
func (s *stubVideos) SetPosterRef(context.Context, uuid.UUID, string) error { return nil }
func (s *stubVideos) Delete(context.Context, uuid.UUID) error               { return nil }

type stubUsers struct{}

func (stubUsers) Create(context.Context, *user.User) error { return nil }
func (stubUsers) GetByID(context.Context, uuid.UUID) (*user.User, error) {
	return &user.User{}, nil
}
func (stubUsers) GetByTelegramID(context.Context, string) (*user.User, error) {
	return nil, nil
}
func (stubUsers) GetByReferralCode(context.Context, string) (*user.User, error) {
	return nil, nil
}
func (stubUsers) UpdateProfile(context.Context, uuid.UUID, string, string, bool) error {
	return nil
}
func (stubUsers) EnsureReferralCode(context.Context, uuid.UUID) (string, error) {
	return "", nil
}
func (stubUsers) Leaderboard(context.Context, int) ([]user.LeaderboardRow, error) {
	return nil, nil
}
func (stubUsers) ListInvited(context.Context, uuid.UUID) ([]user.User, error) {
	return nil, nil
}
func (stubUsers) List(context.Context, int) ([]user.User, error) { return nil, nil }

type stubLedger struct {
	owned map[[2]uuid.UUID]bool
}

func (s *stubLedger) HasPurchase(_ context.Context, userID, videoID uuid.UUID) (bool, error) {
	return s.owned[[2]uuid.UUID{userID, videoID}], nil
}
func (s *stubLedger) CreatePurchase(context.Context, uuid.UUID, uuid.UUID, int) (int, error) {
	return 0, nil
}
func (s *stubLedger) Adjust(context.Context, uuid.UUID, uuid.NullUUID, int, string) (int, error) {
	return 0, nil
}
func (s *stubLedger) Credit(context.Context, uuid.UUID, int, string) error { return nil }
func (s *stubLedger) AttachReferral(context.Context, uuid.UUID, uuid.UUID, int, int) (bool, error) {
	return false, nil
}
func (s *stubLedger) ListPurchases(context.Context, uuid.UUID) ([]ledger.Purchase, error) {
	return nil, nil
}
func (s *stubLedger) ListTransactions(context.Context, uuid.UUID, int) ([]ledger.CoinTransaction, error) {
	return nil, nil
}
func (s *stubLedger) ListAllTransactions(context.Context, int) ([]ledger.CoinTransaction, error) {
	return nil, nil
}

func newGateTestRouter(t *testing.T, upstreamURL string, videos *stubVideos, owned map[[2]uuid.UUID]bool) chi.Router {
	t.Helper()

	allowed := "cdn.example.com"
	if upstreamURL != "" {
		u, err := url.Parse(upstreamURL)
		if err != nil {
			t.Fatal(err)
		}
		allowed = u.Hostname()
	}

	ledgerSvc := ledger.NewService(&stubLedger{owned: owned}, stubUsers{}, videos, nil, zerolog.Nop())
	proxy := NewProxy(ProxyConfig{AllowedHosts: []string{allowed}, Timeout: 5 * time.Second})
	h := NewHandler(NewResolver(nil, nil), proxy, videos, ledgerSvc, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/media-proxy", h.ProxyMedia)
	r.Get("/videos/{id}/stream", h.StreamVideo)
	return r
}

func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
	return r.WithContext(ctx)
}

func TestProxyMediaDisallowedHost(t *testing.T) {
	router := newGateTestRouter(t, "", &stubVideos{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy?src=https://evil.example/file.mp4", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestProxyMediaMissingParams(t *testing.T) {
	router := newGateTestRouter(t, "", &stubVideos{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/media-proxy", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestStreamVideoGate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("bytes"))
	}))
	defer upstream.Close()

	freeID := uuid.New()
	paidID := uuid.New()
	buyerID := uuid.New()

	videos := &stubVideos{videos: map[uuid.UUID]*video.Video{
		freeID: {ID: freeID, MediaRef: upstream.URL + "/free.mp4", IsFree: true},
		paidID: {ID: paidID, MediaRef: upstream.URL + "/paid.mp4", Price: 15},
	}}
	owned := map[[2]uuid.UUID]bool{{buyerID, paidID}: true}
	router := newGateTestRouter(t, upstream.URL, videos, owned)

	t.Run("free video anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+freeID.String()+"/stream", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if rr.Body.String() != "bytes" {
			t.Fatalf("body = %q", rr.Body.String())
		}
	})

	t.Run("paid video anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+paidID.String()+"/stream", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("paid video without purchase", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+paidID.String()+"/stream", nil)
		req = withUser(req, uuid.New())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusPaymentRequired {
			t.Fatalf("status = %d, want 402", rr.Code)
		}
	})

	t.Run("paid video purchased", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+paidID.String()+"/stream", nil)
		req = withUser(req, buyerID)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
	})

	t.Run("unknown video", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+uuid.New().String()+"/stream", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rr.Code)
		}
	})
}
