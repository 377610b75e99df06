package cmd

import (
	"time"

	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/helpers"
)

var telegramEnvMapString = map[*string]boundEnvVar[string]{
	&config.Telegram.Token: {
		Name:        "telegram-token",
		Description: "The Telegram bot token",
	},
	&config.Telegram.WebhookURL: {
		Name:        "telegram-webhook-url",
		Description: "The public URL Telegram delivers updates to. If empty, the webhook is left untouched",
	},
	&config.Telegram.SecretToken: {
		Name:        "telegram-secret-token",
		Description: "The secret Telegram echoes in X-Telegram-Bot-Api-Secret-Token",
	},
	&config.Telegram.WebhookPath: {
		Name:        "telegram-webhook-path",
		Description: "The path Telegram updates are received on",
	},
	&config.Telegram.MiniAppURL: {
		Name:        "telegram-miniapp-url",
		Description: "The rewarded mini app URL opened by the watch button",
		Env:         helpers.Ptr("MINIAPP_URL"),
	},
	&config.Telegram.DirectLinkBaseURL: {
		Name:        "telegram-direct-link-base-url",
		Description: "The base URL direct link codes are appended to",
		Env:         helpers.Ptr("DIRECT_LINK_BASE_URL"),
	},
}

var telegramEnvMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Telegram.AdInterval: {
		Name:        "telegram-ad-interval",
		Description: "How long a viewed ad keeps the gate open",
	},
}
