// Package telegram connects the ad gate to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/botads/botads-go/internal/gate"
	"github.com/botads/botads-go/internal/helpers"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

var _ gate.Messenger = (*Bot)(nil)

// Bot sends messages through the Bot API.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

type Option func(*botOptions)

type botOptions struct {
	logger     *slog.Logger
	endpoint   string
	httpClient *http.Client
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *botOptions) {
		o.logger = logger
	}
}

// WithEndpoint overrides the Bot API endpoint format, "https://api.telegram.org/bot%s/%s" by default.
func WithEndpoint(endpoint string) Option {
	return func(o *botOptions) {
		o.endpoint = endpoint
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *botOptions) {
		o.httpClient = client
	}
}

// NewBot authenticates token against the Bot API. The bot's logger also replaces the
// package-level logger of telegram-bot-api, which is shared by every Bot in the process.
func NewBot(token string, opts ...Option) (*Bot, error) {
	o := botOptions{endpoint: tgbotapi.APIEndpoint, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = helpers.NewNoopLogger()
	}
	if token == "" {
		return nil, errors.New("missing telegram bot token")
	}
	if err := tgbotapi.SetLogger(&botLogger{o.logger}); err != nil {
		return nil, errors.Wrap(err, "failed to set telegram logger")
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to authenticate telegram bot")
	}
	o.logger.Info("authorized telegram bot", slog.String("username", api.Self.UserName))
	return &Bot{api: api, logger: o.logger}, nil
}

// SetWebhook replaces the bot webhook with url. Telegram echoes secretToken, when set,
// in the X-Telegram-Bot-Api-Secret-Token header.
func (b *Bot) SetWebhook(url, secretToken string) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return errors.Wrap(err, "failed to remove telegram webhook")
	}
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secretToken)
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return errors.Wrap(err, "failed to set telegram webhook")
	}
	b.logger.Info("telegram webhook set", slog.String("url", url))
	return nil
}

func (b *Bot) SendText(_ context.Context, chatID int64, text string) (int, error) {
	msg, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to send message to chat %d", chatID)
	}
	return msg.MessageID, nil
}

func (b *Bot) SendAdPrompt(_ context.Context, chatID int64, text, watchURL, skipData string) (int, error) {
	cfg := tgbotapi.NewMessage(chatID, text)
	cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(gate.TextWatchAd, watchURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(gate.TextSkip, skipData)),
	)
	msg, err := b.api.Send(cfg)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to send ad prompt to chat %d", chatID)
	}
	return msg.MessageID, nil
}

func (b *Bot) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

type botLogger struct {
	logger *slog.Logger
}

func (l *botLogger) Println(v ...any) {
	l.logger.Debug(fmt.Sprint(v...))
}

func (l *botLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
