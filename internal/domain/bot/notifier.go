package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/uzvideohub/videohub-api/internal/domain/user"
	"github.com/uzvideohub/videohub-api/internal/pkg/telegram"
)

// Notifier tells a referrer about a successful invite. Used by the ledger
// after the referral transaction commits.
type Notifier struct {
	client *telegram.Client
}

func NewNotifier(client *telegram.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) NotifyReferralAttached(ctx context.Context, referrer *user.User, newUser *user.User, bonus int) error {
	chatID, err := strconv.ParseInt(referrer.TelegramID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad telegram id %q: %w", referrer.TelegramID, err)
	}

	text := fmt.Sprintf("%s joined with your invite link. You earned %d coins.", newUser.Name(), bonus)
	return n.client.SendMessage(ctx, chatID, text)
}
