package ledger

import "errors"

var (
	ErrInternal            = errors.New("internal ledger error")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient coin balance")
	ErrAlreadyPurchased    = errors.New("video already purchased")
	ErrInvalidDelta        = errors.New("delta must not be zero")
	ErrSelfReferral        = errors.New("cannot attach own referral code")
	ErrAlreadyReferred     = errors.New("referral already attached")
	ErrReferrerNotFound    = errors.New("referral code not found")
)
