package cmd

import (
	"context"

	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/handler"
	"github.com/botads/botads-go/internal/runtime"
	"github.com/botads/botads-go/internal/server"
	"github.com/spf13/cobra"
)

func cmdService() *cobra.Command {
	return &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		Short:   "Receive Botads webhooks and proxy short code requests over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeService)
			logger.Info("Spawning...")

			srv, cleanup, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return srv.ListenAndServe(cmd.Context())
		},
	}
}

func buildService(ctx context.Context) (*server.Server, func(), error) {
	awsCtl, err := setupAWS(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err = resolveCredentials(ctx, awsCtl); err != nil {
		return nil, nil, err
	}

	logger.Debug("Creating webhook handler...")
	hdl, err := newWebhookHandler(ctx, awsCtl, handler.EventHandlerFunc(logEvents))
	if err != nil {
		return nil, nil, err
	}
	client, err := newBotadsClient()
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("Creating runtime...")
	rt := runtime.NewRuntime(hdl, runtime.WithLogger(loggerFor("runtime")))

	srv := server.New(server.Config{
		Addr:    config.Service.Addr,
		Port:    config.Service.Port,
		Timeout: config.Service.Timeout,
	},
		server.WithLogger(loggerFor("server")),
		server.WithWebhook(config.Service.WebhookPath, rt),
		server.WithCodes(client, config.Botads.BotID))
	return srv, client.Close, nil
}
