package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/uzvideohub/videohub-api/internal/pkg/refcode"
)

// Repository defines user data access interface
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*User, error)
	GetByReferralCode(ctx context.Context, code string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username, displayName string, isAdmin bool) error
	EnsureReferralCode(ctx context.Context, id uuid.UUID) (string, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
	ListInvited(ctx context.Context, referrerID uuid.UUID) ([]User, error)
	List(ctx context.Context, limit int) ([]User, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, telegram_id, username, display_name, coin_balance, is_admin,
       referral_code, referred_by_user_id, created_at, updated_at`

// Create creates a new user
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, telegram_id, username, display_name, coin_balance, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.TelegramID,
		user.Username,
		user.DisplayName,
		user.CoinBalance,
		user.IsAdmin,
	)
	if err != nil {
		return fmt.Errorf("user repository create: %w", err)
	}
	return nil
}

// GetByID returns user by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByTelegramID returns user by Telegram account id
func (r *repository) GetByTelegramID(ctx context.Context, telegramID string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByReferralCode returns the user owning a referral code
func (r *repository) GetByReferralCode(ctx context.Context, code string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile refreshes profile fields and the admin flag at sign-in
func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, username, displayName string, isAdmin bool) error {
	query := `
		UPDATE users
		SET username = COALESCE(NULLIF($2, ''), username),
		    display_name = COALESCE(NULLIF($3, ''), display_name),
		    is_admin = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, username, displayName, isAdmin)
	if err != nil {
		return fmt.Errorf("user repository update profile: %w", err)
	}
	return nil
}

// EnsureReferralCode returns the user's referral code, generating one on first
// use. Generation retries on the unique constraint, so two users can never end
// up sharing a code.
func (r *repository) EnsureReferralCode(ctx context.Context, id uuid.UUID) (string, error) {
	var code sql.NullString
	if err := r.db.GetContext(ctx, &code, `SELECT referral_code FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	if code.Valid && code.String != "" {
		return code.String, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		candidate, err := refcode.New()
		if err != nil {
			return "", err
		}

		_, err = r.db.ExecContext(ctx,
			`UPDATE users SET referral_code = $2, updated_at = NOW()
			 WHERE id = $1 AND referral_code IS NULL`,
			id, candidate,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				continue // collision, try another code
			}
			return "", fmt.Errorf("user repository set referral code: %w", err)
		}

		// Re-read: either our candidate landed or a concurrent call won.
		if err := r.db.GetContext(ctx, &code, `SELECT referral_code FROM users WHERE id = $1`, id); err != nil {
			return "", err
		}
		if code.Valid && code.String != "" {
			return code.String, nil
		}
	}

	return "", ErrCodeTaken
}

// Leaderboard returns users ranked by how many sign-ups they referred
func (r *repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows := make([]LeaderboardRow, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT u.id, u.username, u.display_name, u.coin_balance,
		       COUNT(invited.id) AS referral_count
		FROM users u
		JOIN users invited ON invited.referred_by_user_id = u.id
		GROUP BY u.id, u.username, u.display_name, u.coin_balance
		ORDER BY referral_count DESC, u.coin_balance DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("user repository leaderboard: %w", err)
	}
	return rows, nil
}

// ListInvited returns the users a referrer brought in
func (r *repository) ListInvited(ctx context.Context, referrerID uuid.UUID) ([]User, error) {
	users := make([]User, 0)
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE referred_by_user_id = $1 ORDER BY created_at DESC`,
		referrerID,
	)
	if err != nil {
		return nil, fmt.Errorf("user repository list invited: %w", err)
	}
	return users, nil
}

// List returns users for the admin panel, admins first then by balance
func (r *repository) List(ctx context.Context, limit int) ([]User, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	users := make([]User, 0)
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY is_admin DESC, coin_balance DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("user repository list: %w", err)
	}
	return users, nil
}
