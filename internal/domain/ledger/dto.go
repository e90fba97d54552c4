package ledger

import "github.com/google/uuid"

// PurchaseRequest is the body of POST /purchase.
type PurchaseRequest struct {
	VideoID uuid.UUID `json:"video_id" validate:"required"`
}

// PurchaseResult is returned on every successful purchase call,
// including repeats and free videos.
type PurchaseResult struct {
	VideoID      uuid.UUID `json:"video_id"`
	AlreadyOwned bool      `json:"already_owned"`
	Free         bool      `json:"free"`
	Price        int       `json:"price"`
	Balance      int       `json:"balance"`
}

// AdjustRequest is the body of the admin coin adjustment endpoint.
type AdjustRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Delta  int       `json:"delta" validate:"required"`
	Reason string    `json:"reason" validate:"max=200"`
}

// AttachReferralRequest is the body of the referral attach call. UserID
// defaults to the authenticated caller; only admins may set someone else's.
type AttachReferralRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	ReferralCode string    `json:"referral_code" validate:"required,min=4,max=16"`
}

// AttachReferralResult reports what the attach did. Attached is false
// when the user already had a referrer recorded.
type AttachReferralResult struct {
	Attached   bool      `json:"attached"`
	ReferrerID uuid.UUID `json:"referrer_id,omitempty"`
}
