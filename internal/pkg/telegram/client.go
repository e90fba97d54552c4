package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// ErrNotConfigured is returned when no bot token was provided at startup.
var ErrNotConfigured = errors.New("telegram bot token not configured")

// Client wraps the Telegram Bot API for the two things this service needs:
// resolving file ids to fetchable CDN URLs and sending outbound messages.
type Client struct {
	bot *telego.Bot
}

// NewClient creates a Telegram Bot API client. An empty token yields a client
// whose calls fail with ErrNotConfigured, so wiring stays nil-safe.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return &Client{}, nil
	}
	bot, err := telego.NewBot(token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("telegram client: %w", err)
	}
	return &Client{bot: bot}, nil
}

// FileURL resolves a Telegram file id to a direct download URL on the
// bot file CDN (api.telegram.org/file/bot<token>/<file_path>).
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	if c == nil || c.bot == nil {
		return "", ErrNotConfigured
	}

	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("getFile: %w", err)
	}
	if file == nil || file.FilePath == "" {
		return "", errors.New("getFile: empty file_path in response")
	}

	return c.bot.FileDownloadURL(file.FilePath), nil
}

// SendMessage sends a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if c == nil || c.bot == nil {
		return ErrNotConfigured
	}
	_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

// SendWebAppButton sends a message with a reply keyboard opening the given
// WebApp URL. Used by the /start handler.
func (c *Client) SendWebAppButton(ctx context.Context, chatID int64, text, buttonText, webAppURL string) error {
	if c == nil || c.bot == nil {
		return ErrNotConfigured
	}
	msg := tu.Message(tu.ID(chatID), text).
		WithReplyMarkup(&telego.ReplyKeyboardMarkup{
			Keyboard: [][]telego.KeyboardButton{{
				{Text: buttonText, WebApp: &telego.WebAppInfo{URL: webAppURL}},
			}},
			ResizeKeyboard: true,
		})
	_, err := c.bot.SendMessage(ctx, msg)
	return err
}
