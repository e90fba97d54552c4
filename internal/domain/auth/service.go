package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/domain/ledger"
	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/pkg/jwt"
)

// Config carries the sign-in policy knobs loaded at process start.
type Config struct {
	BotToken         string
	AdminTelegramIDs map[int64]bool
	WelcomeBonus     int
	RefBonusReferrer int
	RefBonusNewUser  int
}

type Service struct {
	users  user.Repository
	ledger *ledger.Service
	tokens *jwt.Service
	cfg    Config
	logger zerolog.Logger
}

func NewService(users user.Repository, ledgerSvc *ledger.Service, tokens *jwt.Service, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		ledger: ledgerSvc,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

// SignIn verifies Telegram WebApp init data and returns a session token.
// First sign-in creates the account, credits the welcome bonus, and may
// attach a referral. Everything referral-related is best effort: a bad
// code never fails the sign-in.
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*SignInResponse, error) {
	data, err := VerifyInitData(req.InitData, s.cfg.BotToken)
	if err != nil {
		return nil, err
	}

	u, isNew, err := s.upsertUser(ctx, data.User)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.EnsureReferralCode(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to ensure referral code")
	}

	code := req.ReferralCode
	if code == "" {
		code = data.StartParam
	}
	if code != "" && isNew {
		s.attachReferral(ctx, u.ID, code)
	}

	token, err := s.tokens.GenerateToken(u.ID, u.IsAdmin)
	if err != nil {
		return nil, err
	}

	// Reload so the profile reflects bonus credits made above.
	if fresh, err := s.users.GetByID(ctx, u.ID); err == nil && fresh != nil {
		u = fresh
	}

	return &SignInResponse{Token: token, Profile: u.ToProfile(), IsNew: isNew}, nil
}

func (s *Service) upsertUser(ctx context.Context, wu WebAppUser) (*user.User, bool, error) {
	tgID := strconv.FormatInt(wu.ID, 10)
	isAdmin := s.cfg.AdminTelegramIDs[wu.ID]

	existing, err := s.users.GetByTelegramID(ctx, tgID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if err := s.users.UpdateProfile(ctx, existing.ID, wu.Username, wu.DisplayName(), isAdmin); err != nil {
			return nil, false, err
		}
		existing.IsAdmin = isAdmin
		return existing, false, nil
	}

	u := &user.User{
		ID:         uuid.New(),
		TelegramID: tgID,
		IsAdmin:    isAdmin,
	}
	if wu.Username != "" {
		u.Username.String, u.Username.Valid = wu.Username, true
	}
	if name := wu.DisplayName(); name != "" {
		u.DisplayName.String, u.DisplayName.Valid = name, true
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, false, err
	}

	if s.cfg.WelcomeBonus > 0 {
		if err := s.ledger.Credit(ctx, u.ID, s.cfg.WelcomeBonus, ledger.ReasonWelcomeBonus); err != nil {
			s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to credit welcome bonus")
		}
	}

	return u, true, nil
}

func (s *Service) attachReferral(ctx context.Context, userID uuid.UUID, code string) {
	_, err := s.ledger.AttachReferral(ctx, userID, code, s.cfg.RefBonusReferrer, s.cfg.RefBonusNewUser)
	if err == nil {
		return
	}
	if errors.Is(err, ledger.ErrReferrerNotFound) || errors.Is(err, ledger.ErrSelfReferral) {
		s.logger.Debug().Err(err).Str("code", code).Msg("referral code not applied")
		return
	}
	s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to attach referral")
}
