package cmd

import (
	"context"

	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/gate"
	"github.com/botads/botads-go/internal/runtime"
	"github.com/botads/botads-go/internal/server"
	"github.com/botads/botads-go/internal/telegram"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdTelegram() *cobra.Command {
	return &cobra.Command{
		Use:     "telegram",
		Aliases: []string{"tg", "bot"},
		Short:   "Run the Telegram bot that gates a protected action behind Botads ads",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeTelegram)
			logger.Info("Spawning...")

			bot, err := telegram.NewBot(config.Telegram.Token, telegram.WithLogger(loggerFor("telegram")))
			if err != nil {
				return err
			}
			srv, cleanup, err := buildTelegram(cmd.Context(), bot)
			if err != nil {
				return err
			}
			defer cleanup()

			if config.Telegram.WebhookURL != "" {
				if err = bot.SetWebhook(config.Telegram.WebhookURL, config.Telegram.SecretToken); err != nil {
					return err
				}
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}
}

type messenger interface {
	gate.Messenger
	telegram.TextSender
}

func buildTelegram(ctx context.Context, bot messenger) (*server.Server, func(), error) {
	awsCtl, err := setupAWS(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err = resolveCredentials(ctx, awsCtl); err != nil {
		return nil, nil, err
	}
	if config.Botads.BotID == "" {
		return nil, nil, errors.New("missing Botads bot id")
	}
	client, err := newBotadsClient()
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := newStateStore(ctx)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		closeStore()
		client.Close()
	}

	g := gate.New(gate.Config{
		BotID:             config.Botads.BotID,
		MiniAppURL:        config.Telegram.MiniAppURL,
		DirectLinkBaseURL: config.Telegram.DirectLinkBaseURL,
		AdInterval:        config.Telegram.AdInterval,
	}, store, bot, client, gate.WithLogger(loggerFor("gate")))

	hdl, err := newWebhookHandler(ctx, awsCtl, g)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	rt := runtime.NewRuntime(hdl, runtime.WithLogger(loggerFor("runtime")))
	updates := telegram.NewUpdateHandler(g, bot, config.Telegram.SecretToken, loggerFor("telegram-updates"))

	srv := server.New(server.Config{
		Addr:    config.Service.Addr,
		Port:    config.Service.Port,
		Timeout: config.Service.Timeout,
	},
		server.WithLogger(loggerFor("server")),
		server.WithWebhook(config.Service.WebhookPath, rt),
		server.WithTelegram(config.Telegram.WebhookPath, updates))
	return srv, cleanup, nil
}
