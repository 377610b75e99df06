package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/botads/botads-go/internal/gate"
	"github.com/botads/botads-go/internal/helpers"
	"github.com/botads/botads-go/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretTokenHeader carries the secret token registered with SetWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Actions is satisfied by *gate.Gate.
type Actions interface {
	HandleStart(ctx context.Context, userID, chatID int64) error
	HandleProtected(ctx context.Context, userID, chatID int64) error
	HandleSkip(ctx context.Context, callbackID string, userID, chatID int64) error
}

var _ Actions = (*gate.Gate)(nil)

// TextSender is satisfied by *Bot.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
}

// UpdateHandler receives Telegram webhook updates and routes them to the gate.
type UpdateHandler struct {
	actions     Actions
	sender      TextSender
	secretToken string
	logger      *slog.Logger
}

// NewUpdateHandler returns an http.Handler for Telegram updates. An empty secretToken
// accepts every request.
func NewUpdateHandler(actions Actions, sender TextSender, secretToken string, logger *slog.Logger) *UpdateHandler {
	if logger == nil {
		logger = helpers.NewNoopLogger()
	}
	return &UpdateHandler{actions: actions, sender: sender, secretToken: secretToken, logger: logger}
}

func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secretToken != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secretToken)) != 1 {
			h.logger.Warn("rejecting telegram update", slog.String("reason", "secret token mismatch"))
			helpers.RespondHTTP(models.Response{Body: "forbidden", StatusCode: http.StatusForbidden}, nil, w)
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&update); err != nil {
		h.logger.Warn("invalid telegram update", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{Body: "invalid update", StatusCode: http.StatusBadRequest}, err, w)
		return
	}
	if err := h.Dispatch(r.Context(), update); err != nil {
		h.logger.Error("failed to handle telegram update", slog.Int("updateID", update.UpdateID), slog.Any("error", err))
	}
	helpers.RespondHTTP(models.Response{Body: "ok", StatusCode: http.StatusOK}, nil, w)
}

// Dispatch routes a single update.
func (h *UpdateHandler) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil:
		return h.dispatchMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return h.dispatchCallback(ctx, update.CallbackQuery)
	default:
		h.logger.Debug("ignoring telegram update", slog.Int("updateID", update.UpdateID))
		return nil
	}
}

func (h *UpdateHandler) dispatchMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return h.actions.HandleStart(ctx, userID, chatID)
		case "secret":
			return h.actions.HandleProtected(ctx, userID, chatID)
		}
	}
	_, err := h.sender.SendText(ctx, chatID, gate.TextUnknown)
	return err
}

func (h *UpdateHandler) dispatchCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if !strings.HasPrefix(cq.Data, gate.SkipPrefix) || cq.From == nil {
		h.logger.Debug("ignoring callback query", slog.String("data", cq.Data))
		return nil
	}
	chatID := cq.From.ID
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}
	return h.actions.HandleSkip(ctx, cq.ID, cq.From.ID, chatID)
}
