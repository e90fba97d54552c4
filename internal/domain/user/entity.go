package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a viewer account created on first Telegram sign-in.
// The coin balance is internal currency, not money; it is mutated only
// through the ledger domain.
type User struct {
	ID          uuid.UUID      `db:"id"`
	TelegramID  string         `db:"telegram_id"`
	Username    sql.NullString `db:"username"`
	DisplayName sql.NullString `db:"display_name"`
	CoinBalance int            `db:"coin_balance"`
	IsAdmin     bool           `db:"is_admin"`

	// Referral: code is generated lazily, referrer is attached at most once.
	ReferralCode     sql.NullString `db:"referral_code"`
	ReferredByUserID uuid.NullUUID  `db:"referred_by_user_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Name returns the best human-readable name for display.
func (u *User) Name() string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	if u.Username.Valid && u.Username.String != "" {
		return u.Username.String
	}
	return "#" + u.ID.String()[:8]
}

// LeaderboardRow is one entry of the referral leaderboard.
type LeaderboardRow struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Username      sql.NullString `db:"username" json:"-"`
	DisplayName   sql.NullString `db:"display_name" json:"-"`
	Name          string         `db:"-" json:"name"`
	CoinBalance   int            `db:"coin_balance" json:"coins"`
	ReferralCount int            `db:"referral_count" json:"count"`
}
