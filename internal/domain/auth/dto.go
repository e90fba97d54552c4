package auth

import "github.com/uzvideohub/videohub-api/internal/domain/user"

// SignInRequest is the body of POST /auth/telegram.
type SignInRequest struct {
	InitData     string `json:"init_data" validate:"required"`
	ReferralCode string `json:"referral_code"`
}

// SignInResponse carries the session token and the signed-in profile.
type SignInResponse struct {
	Token   string        `json:"token"`
	Profile *user.Profile `json:"profile"`
	IsNew   bool          `json:"is_new"`
}
