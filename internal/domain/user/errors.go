package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrCodeTaken    = errors.New("referral code already taken")
)
