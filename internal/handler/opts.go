package handler

import (
	"context"
	"log/slog"
)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger of the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithContext sets the base context passed to the archiver and the event handler.
func WithContext(ctx context.Context) Option {
	return func(h *Handler) {
		h.ctx = ctx
	}
}

// WithWebhookSecret sets the secret webhook bodies are signed with.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.webhookSecret = secret
	}
}

// WithEventHandler sets the consumer of verified payloads.
func WithEventHandler(eventHandler EventHandler) Option {
	return func(h *Handler) {
		h.eventHandler = eventHandler
	}
}

// WithArchiver stores each verified body before it is dispatched.
func WithArchiver(archiver Archiver) Option {
	return func(h *Handler) {
		h.archiver = archiver
	}
}
