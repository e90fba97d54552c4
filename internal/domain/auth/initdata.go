package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrExpiredInitData = errors.New("init data is too old")
)

// initDataMaxAge bounds how long a signed init data payload stays usable.
const initDataMaxAge = 24 * time.Hour

// WebAppUser is the user object Telegram embeds in WebApp init data.
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u WebAppUser) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// InitData is the verified payload of a Telegram WebApp sign-in.
type InitData struct {
	User       WebAppUser
	StartParam string
	AuthDate   time.Time
}

// VerifyInitData checks the HMAC signature Telegram attaches to WebApp
// init data. The signing key is HMAC-SHA256("WebAppData", botToken) per
// the Bot API contract.
func VerifyInitData(raw, botToken string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrInvalidInitData
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, ErrInvalidInitData
	}

	data := &InitData{StartParam: values.Get("start_param")}

	if rawDate := values.Get("auth_date"); rawDate != "" {
		var unix int64
		for _, c := range rawDate {
			if c < '0' || c > '9' {
				return nil, ErrInvalidInitData
			}
			unix = unix*10 + int64(c-'0')
		}
		data.AuthDate = time.Unix(unix, 0)
		if time.Since(data.AuthDate) > initDataMaxAge {
			return nil, ErrExpiredInitData
		}
	}

	if rawUser := values.Get("user"); rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &data.User); err != nil {
			return nil, ErrInvalidInitData
		}
	}
	if data.User.ID == 0 {
		return nil, ErrInvalidInitData
	}

	return data, nil
}
