package user

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public representation of a user
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Coins       int       `json:"coins"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToProfile converts an entity to its public representation
func (u *User) ToProfile() *Profile {
	return &Profile{
		ID:          u.ID,
		Username:    u.Username.String,
		DisplayName: u.DisplayName.String,
		Coins:       u.CoinBalance,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}

// InvitedUser is one row of "my invites"
type InvitedUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Coins     int       `json:"coins"`
	CreatedAt time.Time `json:"created_at"`
}
