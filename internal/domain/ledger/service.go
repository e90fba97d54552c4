package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/domain/video"
)

// Notifier delivers out-of-band messages about ledger events. Delivery
// happens after the transaction commits and failures are only logged.
type Notifier interface {
	NotifyReferralAttached(ctx context.Context, referrer *user.User, newUser *user.User, bonus int) error
}

type Service struct {
	repo     Repository
	users    user.Repository
	videos   video.Repository
	notifier Notifier // nil when the bot is not configured
	logger   zerolog.Logger
}

func NewService(repo Repository, users user.Repository, videos video.Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		videos:   videos,
		notifier: notifier,
		logger:   logger,
	}
}

// Purchase grants the user access to a video. The call is idempotent:
// repeat purchases and free videos both succeed without touching the
// balance, only the first purchase of a paid video debits coins.
func (s *Service) Purchase(ctx context.Context, userID, videoID uuid.UUID) (*PurchaseResult, error) {
	v, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, video.ErrVideoNotFound
	}

	result := &PurchaseResult{VideoID: videoID, Price: v.Price, Free: v.IsFree}

	// Free videos are playable by anyone, no ownership row is written.
	if v.IsFree || v.Price <= 0 {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrUserNotFound
		}
		result.Balance = u.CoinBalance
		return result, nil
	}

	owned, err := s.repo.HasPurchase(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}
	if owned {
		return s.alreadyOwned(ctx, userID, result)
	}

	balance, err := s.repo.CreatePurchase(ctx, userID, videoID, v.Price)
	if err != nil {
		if errors.Is(err, ErrAlreadyPurchased) {
			return s.alreadyOwned(ctx, userID, result)
		}
		return nil, err
	}

	result.Balance = balance
	return result, nil
}

func (s *Service) alreadyOwned(ctx context.Context, userID uuid.UUID, result *PurchaseResult) (*PurchaseResult, error) {
	result.AlreadyOwned = true
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		result.Balance = u.CoinBalance
	}
	return result, nil
}

// HasAccess reports whether the user may stream the video. Free videos
// are open to everyone, including anonymous callers (userID == uuid.Nil).
func (s *Service) HasAccess(ctx context.Context, userID uuid.UUID, v *video.Video) (bool, error) {
	if v.IsFree || v.Price <= 0 {
		return true, nil
	}
	if userID == uuid.Nil {
		return false, nil
	}
	return s.repo.HasPurchase(ctx, userID, v.ID)
}

// Credit adds coins with an audit entry, used for sign-up bonuses.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	return s.repo.Credit(ctx, userID, amount, reason)
}

// Adjust applies an admin balance change and records who made it.
func (s *Service) Adjust(ctx context.Context, adminID, userID uuid.UUID, delta int, reason string) (int, error) {
	if delta == 0 {
		return 0, ErrInvalidDelta
	}
	acting := uuid.NullUUID{UUID: adminID, Valid: adminID != uuid.Nil}
	return s.repo.Adjust(ctx, userID, acting, delta, reason)
}

// AttachReferral links a freshly signed-in user to the owner of the given
// referral code and credits both sides. Attachment happens at most once
// per user; a repeat call is a no-op. The notification to the referrer is
// sent only after the transaction committed, so a bot outage can never
// roll back the bonus.
func (s *Service) AttachReferral(ctx context.Context, userID uuid.UUID, referralCode string, bonusReferrer, bonusNewUser int) (*AttachReferralResult, error) {
	referrer, err := s.users.GetByReferralCode(ctx, referralCode)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrReferrerNotFound
	}
	if referrer.ID == userID {
		return nil, ErrSelfReferral
	}

	attached, err := s.repo.AttachReferral(ctx, userID, referrer.ID, bonusReferrer, bonusNewUser)
	if err != nil {
		return nil, err
	}

	result := &AttachReferralResult{Attached: attached, ReferrerID: referrer.ID}
	if !attached {
		return result, nil
	}

	if s.notifier != nil {
		newUser, err := s.users.GetByID(ctx, userID)
		if err != nil || newUser == nil {
			s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("referral attached but new user lookup failed, skipping notification")
			return result, nil
		}
		if err := s.notifier.NotifyReferralAttached(ctx, referrer, newUser, bonusReferrer); err != nil {
			s.logger.Warn().Err(err).
				Str("referrer_id", referrer.ID.String()).
				Msg("failed to notify referrer")
		}
	}

	return result, nil
}

func (s *Service) ListPurchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, userID)
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]CoinTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit)
}

func (s *Service) ListAllTransactions(ctx context.Context, limit int) ([]CoinTransaction, error) {
	return s.repo.ListAllTransactions(ctx, limit)
}
