package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Purchase records that a user owns a paid video. One row per
// (user, video) pair, price captured at purchase time.
type Purchase struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	VideoID   uuid.UUID `db:"video_id" json:"video_id"`
	Price     int       `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoinTransaction is an append-only record of a balance change.
// Delta is negative for debits.
type CoinTransaction struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	ActingAdminID uuid.NullUUID `db:"acting_admin_id" json:"acting_admin_id,omitempty"`
	Delta         int           `db:"delta" json:"delta"`
	Reason        string        `db:"reason" json:"reason"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Transaction reasons. Stored as-is so history stays queryable.
const (
	ReasonPurchase      = "purchase"
	ReasonAdminAdjust   = "admin_adjust"
	ReasonWelcomeBonus  = "welcome_bonus"
	ReasonReferrerBonus = "referral_referrer"
	ReasonReferredBonus = "referral_new_user"
)
