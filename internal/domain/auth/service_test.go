package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/domain/ledger"
	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/domain/video"
	"github.com/uzvideohub/videohub-api/internal/pkg/jwt"
)

type memUserRepo struct {
	byID    map[uuid.UUID]*user.User
	creates int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[uuid.UUID]*user.User)}
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	m.creates++
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return m.byID[id], nil
}

func (m *memUserRepo) GetByTelegramID(_ context.Context, telegramID string) (*user.User, error) {
	for _, u := range m.byID {
		if u.TelegramID == telegramID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) GetByReferralCode(_ context.Context, code string) (*user.User, error) {
	for _, u := range m.byID {
		if u.ReferralCode.Valid && u.ReferralCode.String == code {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) UpdateProfile(_ context.Context, id uuid.UUID, username, displayName string, isAdmin bool) error {
	if u := m.byID[id]; u != nil {
		u.Username.String, u.Username.Valid = username, username != ""
		u.DisplayName.String, u.DisplayName.Valid = displayName, displayName != ""
		u.IsAdmin = isAdmin
	}
	return nil
}

func (m *memUserRepo) EnsureReferralCode(_ context.Context, id uuid.UUID) (string, error) {
	u := m.byID[id]
	if u == nil {
		return "", user.ErrUserNotFound
	}
	if !u.ReferralCode.Valid {
		u.ReferralCode.String, u.ReferralCode.Valid = "CODE"+id.String()[:4], true
	}
	return u.ReferralCode.String, nil
}

func (m *memUserRepo) Leaderboard(context.Context, int) ([]user.LeaderboardRow, error) {
	return nil, nil
}
func (m *memUserRepo) ListInvited(context.Context, uuid.UUID) ([]user.User, error) {
	return nil, nil
}
func (m *memUserRepo) List(context.Context, int) ([]user.User, error) { return nil, nil }

// memLedgerRepo records credits and referral links against the user repo.
type memLedgerRepo struct {
	users     *memUserRepo
	referrers map[uuid.UUID]uuid.UUID
}

func newMemLedgerRepo(users *memUserRepo) *memLedgerRepo {
	return &memLedgerRepo{users: users, referrers: make(map[uuid.UUID]uuid.UUID)}
}

func (m *memLedgerRepo) Credit(_ context.Context, userID uuid.UUID, amount int, _ string) error {
	if u := m.users.byID[userID]; u != nil {
		u.CoinBalance += amount
	}
	return nil
}

func (m *memLedgerRepo) AttachReferral(_ context.Context, userID, referrerID uuid.UUID, bonusReferrer, bonusNewUser int) (bool, error) {
	if _, ok := m.referrers[userID]; ok {
		return false, nil
	}
	m.referrers[userID] = referrerID
	m.Credit(context.Background(), referrerID, bonusReferrer, "")
	m.Credit(context.Background(), userID, bonusNewUser, "")
	return true, nil
}

func (m *memLedgerRepo) HasPurchase(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}
func (m *memLedgerRepo) CreatePurchase(context.Context, uuid.UUID, uuid.UUID, int) (int, error) {
	return 0, nil
}
func (m *memLedgerRepo) Adjust(context.Context, uuid.UUID, uuid.NullUUID, int, string) (int, error) {
	return 0, nil
}
func (m *memLedgerRepo) ListPurchases(context.Context, uuid.UUID) ([]ledger.Purchase, error) {
	return nil, nil
}
func (m *memLedgerRepo) ListTransactions(context.Context, uuid.UUID, int) ([]ledger.CoinTransaction, error) {
	return nil, nil
}
func (m *memLedgerRepo) ListAllTransactions(context.Context, int) ([]ledger.CoinTransaction, error) {
	return nil, nil
}

type noVideos struct{}

func (noVideos) Create(context.Context, *video.Video) error { return nil }
func (noVideos) GetByID(context.Context, uuid.UUID) (*video.Video, error) {
	return nil, nil
}
func (noVideos) List(context.Context, int) ([]video.Video, error)      { return nil, nil }
func (noVideos) Update(context.Context, *video.Video) error            { return nil }
func (noVideos) SetPosterRef(context.Context, uuid.UUID, string) error { return nil }
func (noVideos) Delete(context.Context, uuid.UUID) error               { return nil }

func newSignInService(users *memUserRepo, ledgerRepo *memLedgerRepo, admins map[int64]bool) *Service {
	ledgerSvc := ledger.NewService(ledgerRepo, users, noVideos{}, nil, zerolog.Nop())
	return NewService(users, ledgerSvc, jwt.NewService("secret", time.Hour), Config{
		BotToken:         testBotToken,
		AdminTelegramIDs: admins,
		WelcomeBonus:     20,
		RefBonusReferrer: 5,
		RefBonusNewUser:  3,
	}, zerolog.Nop())
}

func TestSignInCreatesUserWithWelcomeBonus(t *testing.T) {
	users := newMemUserRepo()
	svc := newSignInService(users, newMemLedgerRepo(users), nil)

	raw := signInitData(t, testBotToken, validFields())
	resp, err := svc.SignIn(context.Background(), &SignInRequest{InitData: raw})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if !resp.IsNew {
		t.Fatal("first sign-in must report is_new")
	}
	if resp.Profile.Coins != 20 {
		t.Fatalf("coins = %d, want welcome bonus 20", resp.Profile.Coins)
	}
	if users.creates != 1 {
		t.Fatalf("creates = %d", users.creates)
	}

	// Repeat sign-in reuses the account.
	again, err := svc.SignIn(context.Background(), &SignInRequest{InitData: raw})
	if err != nil {
		t.Fatalf("repeat sign in: %v", err)
	}
	if again.IsNew {
		t.Fatal("repeat sign-in must not report is_new")
	}
	if users.creates != 1 {
		t.Fatalf("duplicate user created, creates = %d", users.creates)
	}
	if again.Profile.Coins != 20 {
		t.Fatalf("welcome bonus credited twice: %d", again.Profile.Coins)
	}
}

func TestSignInAdminFlag(t *testing.T) {
	users := newMemUserRepo()
	svc := newSignInService(users, newMemLedgerRepo(users), map[int64]bool{777: true})

	raw := signInitData(t, testBotToken, validFields())
	resp, err := svc.SignIn(context.Background(), &SignInRequest{InitData: raw})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if !resp.Profile.IsAdmin {
		t.Fatal("expected admin flag from configured telegram id")
	}
}

func TestSignInAttachesReferralFromStartParam(t *testing.T) {
	users := newMemUserRepo()
	ledgerRepo := newMemLedgerRepo(users)
	svc := newSignInService(users, ledgerRepo, nil)

	referrerID := uuid.New()
	users.byID[referrerID] = &user.User{ID: referrerID, TelegramID: "1"}
	users.byID[referrerID].ReferralCode.String = "FRIEND42"
	users.byID[referrerID].ReferralCode.Valid = true

	fields := validFields()
	fields["start_param"] = "FRIEND42"
	raw := signInitData(t, testBotToken, fields)

	resp, err := svc.SignIn(context.Background(), &SignInRequest{InitData: raw})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	// welcome 20 + referred bonus 3
	if resp.Profile.Coins != 23 {
		t.Fatalf("coins = %d, want 23", resp.Profile.Coins)
	}
	if users.byID[referrerID].CoinBalance != 5 {
		t.Fatalf("referrer balance = %d, want 5", users.byID[referrerID].CoinBalance)
	}
}

func TestSignInBadCodeStillSucceeds(t *testing.T) {
	users := newMemUserRepo()
	svc := newSignInService(users, newMemLedgerRepo(users), nil)

	fields := validFields()
	fields["start_param"] = "NOSUCH99"
	raw := signInitData(t, testBotToken, fields)

	resp, err := svc.SignIn(context.Background(), &SignInRequest{InitData: raw})
	if err != nil {
		t.Fatalf("sign in must not fail on a bad code: %v", err)
	}
	if resp.Profile.Coins != 20 {
		t.Fatalf("coins = %d, want 20", resp.Profile.Coins)
	}
}
