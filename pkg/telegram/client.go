package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"

	"relaygo/pkg/config"
)

const defaultAPICallTimeout = 15 * time.Second

type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// OutboundMessage is text, optionally sent as a photo caption and optionally
// carrying an inline keyboard.
type OutboundMessage struct {
	ChatID   int64      `json:"chat_id"`
	Text     string     `json:"text"`
	PhotoURL string     `json:"photo_url,omitempty"`
	Buttons  [][]Button `json:"buttons,omitempty"`
}

// Client calls the Bot API directly. It never retries.
type Client struct {
	bot     *telego.Bot
	timeout time.Duration
}

func NewClient(cfg config.TelegramConfig) (*Client, error) {
	opts := []telego.BotOption{telego.WithDefaultLogger(false, false)}
	if cfg.APIServer != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}
	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultAPICallTimeout
	}
	return &Client{bot: bot, timeout: timeout}, nil
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Send delivers msg and returns the id Telegram assigned to it.
func (c *Client) Send(ctx context.Context, msg OutboundMessage) (int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	chatID := telegoutil.ID(msg.ChatID)
	markup := inlineKeyboard(msg.Buttons)

	var (
		sent *telego.Message
		err  error
	)
	if msg.PhotoURL != "" {
		params := &telego.SendPhotoParams{
			ChatID:  chatID,
			Photo:   telegoutil.FileFromURL(msg.PhotoURL),
			Caption: msg.Text,
		}
		if markup != nil {
			params.ReplyMarkup = markup
		}
		sent, err = c.bot.SendPhoto(ctx, params)
	} else {
		params := telegoutil.Message(chatID, msg.Text)
		if markup != nil {
			params.ReplyMarkup = markup
		}
		sent, err = c.bot.SendMessage(ctx, params)
	}
	if err != nil {
		return 0, err
	}
	if sent == nil {
		return 0, fmt.Errorf("telegram returned no message")
	}
	return sent.MessageID, nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telegoutil.ID(chatID),
		MessageID: messageID,
	})
}

func (c *Client) SetWebhook(ctx context.Context, url string) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.bot.SetWebhook(ctx, &telego.SetWebhookParams{URL: url})
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{})
}

func (c *Client) BotUsername(ctx context.Context) (string, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", err
	}
	return me.Username, nil
}

func inlineKeyboard(rows [][]Button) *telego.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]telego.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]telego.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telego.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data})
		}
		keyboard = append(keyboard, buttons)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
