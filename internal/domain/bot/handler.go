package bot

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/uzvideohub/videohub-api/internal/pkg/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Handler receives Telegram webhook updates. Replies are best effort and
// the webhook always answers 200 quickly so Telegram does not retry.
type Handler struct {
	client        *telegram.Client
	webhookSecret string
	siteURL       string
	logger        zerolog.Logger
}

func NewHandler(client *telegram.Client, webhookSecret, siteURL string, logger zerolog.Logger) *Handler {
	return &Handler{
		client:        client,
		webhookSecret: webhookSecret,
		siteURL:       siteURL,
		logger:        logger,
	}
}

// Webhook handles POST /telegram/webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret != "" && r.Header.Get(secretTokenHeader) != h.webhookSecret {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var update telego.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn().Err(err).Msg("failed to decode webhook update")
		w.WriteHeader(http.StatusOK)
		return
	}

	if update.Message != nil {
		h.handleMessage(r, update.Message)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleMessage(r *http.Request, msg *telego.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	var err error
	switch {
	case strings.HasPrefix(text, "/start"):
		url := h.siteURL
		// "/start REFCODE" carries the inviter's code into the web app.
		if _, arg, ok := strings.Cut(text, " "); ok && arg != "" {
			url += "?ref=" + strings.TrimSpace(arg)
		}
		err = h.client.SendWebAppButton(r.Context(), chatID, "Welcome! Open the app to watch videos.", "Open", url)

	case strings.HasPrefix(text, "/help"):
		err = h.client.SendMessage(r.Context(), chatID, "Open the app with /start. Invite friends with your referral code to earn coins.")
	}

	if err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to reply to message")
	}
}
