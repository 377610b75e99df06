// Package handler turns signed Botads webhook deliveries into dispatched events.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/helpers"
	"github.com/botads/botads-go/internal/models"
)

// EventHandler consumes verified webhook payloads.
type EventHandler interface {
	HandleEvent(ctx context.Context, payload *botads.WebhookPayload) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, payload *botads.WebhookPayload) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, payload *botads.WebhookPayload) error {
	return f(ctx, payload)
}

// Archiver stores the raw body of a verified webhook.
type Archiver interface {
	Archive(ctx context.Context, event string, body []byte) error
}

// Handler verifies, parses, archives and dispatches webhooks.
type Handler struct {
	ctx           context.Context
	logger        *slog.Logger
	webhookSecret string
	eventHandler  EventHandler
	archiver      Archiver
}

var signatureHeader = strings.ToLower(botads.SignatureHeader)

// NewWebhookHandler builds a Handler. A webhook secret is mandatory.
func NewWebhookHandler(options ...Option) (*Handler, error) {
	_inst := &Handler{}
	for _, opt := range options {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}
	if strings.TrimSpace(_inst.webhookSecret) == "" {
		return nil, &NoWebhookSecretError{}
	}
	if _inst.eventHandler == nil {
		_inst.eventHandler = EventHandlerFunc(func(context.Context, *botads.WebhookPayload) error { return nil })
	}
	return _inst, nil
}

// Process handles a single delivery. headers must be keyed by lower-cased names.
func (h *Handler) Process(body []byte, headers map[string]string) (models.Response, error) {
	return h.ProcessContext(h.ctx, body, headers)
}

// ProcessContext is Process with an explicit context.
func (h *Handler) ProcessContext(ctx context.Context, body []byte, headers map[string]string) (models.Response, error) {
	logger := h.logger
	logger.Info("processing webhook...")

	signature, found := headers[signatureHeader]
	if !found || strings.TrimSpace(signature) == "" {
		logger.Warn("missing signature")
		return models.Response{Body: "missing signature", StatusCode: http.StatusUnauthorized}, botads.ErrInvalidSignature
	}

	payload, err := botads.VerifyAndParse(body, signature, h.webhookSecret)
	if err != nil {
		if errors.Is(err, botads.ErrInvalidSignature) {
			logger.Warn("validating signature", slog.Any("error", err))
			return models.Response{Body: "invalid signature", StatusCode: http.StatusUnauthorized}, err
		}
		logger.Warn("parsing webhook payload", slog.Any("error", err), slog.String("body", helpers.Truncate(string(body), 256)))
		return models.Response{Body: err.Error(), StatusCode: http.StatusUnprocessableEntity}, err
	}
	logger = logger.With(
		slog.String("event", payload.Event),
		slog.String("botID", payload.BotID),
		slog.String("userTgID", payload.UserTgID))
	logger.Debug("webhook is valid")

	if h.archiver != nil {
		if err = h.archiver.Archive(ctx, payload.Event, body); err != nil {
			logger.Error("failed to archive webhook", slog.Any("error", err))
			return models.Response{Body: "failed to archive webhook", StatusCode: http.StatusInternalServerError}, err
		}
	}

	if err = h.eventHandler.HandleEvent(ctx, payload); err != nil {
		logger.Error("event handler failed", slog.Any("error", err))
		return models.Response{Body: "failed to handle event", StatusCode: http.StatusInternalServerError},
			&HandlerFailedError{Event: payload.Event, Err: err}
	}

	logger.Info("webhook processed")
	return models.Response{Body: "ok", StatusCode: http.StatusOK}, nil
}
