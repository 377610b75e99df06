package cmd

import (
	"context"
	"time"

	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/controllers/aws"
	"github.com/botads/botads-go/internal/gate"
	"github.com/botads/botads-go/internal/handler"
	"github.com/botads/botads-go/internal/helpers"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type awsFactory func(ctx context.Context) (*aws.Controller, error)

var newAWSController awsFactory = func(ctx context.Context) (*aws.Controller, error) {
	return aws.NewController(
		aws.WithContext(ctx),
		aws.WithLogger(loggerFor("aws-controller")))
}

// resolveCredentials loads the API token and webhook secret from SSM when configured to.
func resolveCredentials(ctx context.Context, awsCtl *aws.Controller) error {
	switch config.Botads.CredentialsMode {
	case config.CredentialsModeEnv, "":
	case config.CredentialsModeSSM:
		logger.Debug("fetching credentials from SSM...")
		creds, err := awsCtl.GetCredentials(config.Botads.SSMKey)
		if err != nil {
			return err
		}
		config.Botads.APIToken = creds.APIToken
		if creds.WebhookSecret != "" {
			config.Botads.WebhookSecret = creds.WebhookSecret
		}
		if config.Botads.BotID == "" {
			config.Botads.BotID = creds.BotID
		}
	default:
		return errors.Errorf("unsupported credentials mode: %s", config.Botads.CredentialsMode)
	}
	if config.Botads.APIToken == "" {
		return errors.New("missing Botads API token")
	}
	logger.Debug("using Botads credentials",
		"mode", config.Botads.CredentialsMode,
		"token", helpers.Mask(config.Botads.APIToken))
	return nil
}

// setupAWS creates the AWS controller only when SSM or S3 are in use.
func setupAWS(ctx context.Context) (*aws.Controller, error) {
	if config.Botads.CredentialsMode != config.CredentialsModeSSM && !config.Archive.S3.Enabled {
		return nil, nil
	}
	ctl, err := newAWSController(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS controller")
	}
	return ctl, nil
}

func newBotadsClient() (*botads.Client, error) {
	client, err := botads.NewClient(config.Botads.BaseURL, config.Botads.APIToken,
		botads.WithTimeout(config.Botads.Timeout),
		botads.WithUserAgent(config.Botads.UserAgent),
		botads.WithLogger(loggerFor("botads-client")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Botads client")
	}
	return client, nil
}

func newWebhookHandler(ctx context.Context, awsCtl *aws.Controller, events handler.EventHandler) (*handler.Handler, error) {
	opts := []handler.Option{
		handler.WithContext(ctx),
		handler.WithLogger(loggerFor("webhook-handler")),
		handler.WithWebhookSecret(config.WebhookSecret()),
		handler.WithEventHandler(events),
	}
	if config.Archive.S3.Enabled {
		if config.Archive.S3.BucketName == "" {
			return nil, errors.New("S3 archiving is enabled but no bucket is configured")
		}
		opts = append(opts, handler.WithArchiver(awsCtl.NewS3Archiver(config.Archive.S3.BucketName, config.Archive.S3.Prefix)))
	}
	hdl, err := handler.NewWebhookHandler(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create webhook handler")
	}
	return hdl, nil
}

// newStateStore returns the configured gate store and a function releasing its connections.
func newStateStore(ctx context.Context) (gate.Store, func(), error) {
	switch config.State.Backend {
	case config.StateBackendMemory, "":
		return gate.NewMemoryStore(), func() {}, nil
	case config.StateBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.State.Redis.Addr,
			Password: config.State.Redis.Password,
			DB:       config.State.Redis.DB,
		})
		store := gate.NewRedisStore(client, config.State.Redis.KeyPrefix, config.State.Redis.TTL)
		closeStore := func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close Redis client", "error", err)
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			closeStore()
			return nil, nil, errors.Wrap(err, "failed to connect to Redis")
		}
		return store, closeStore, nil
	default:
		return nil, nil, errors.Errorf("unsupported state backend: %s", config.State.Backend)
	}
}

// logEvents is the event handler of the service mode.
func logEvents(_ context.Context, payload *botads.WebhookPayload) error {
	logger.Info("received botads event",
		"event", payload.Event,
		"botID", payload.BotID,
		"userTgID", payload.UserTgID,
		"data", payload.Data)
	return nil
}
