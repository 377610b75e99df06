package cmd

import (
	"time"

	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'service', 'telegram' and 'lambda'",
		Short:       helpers.Ptr("m"),
	},
	&config.Botads.BaseURL: {
		Name:        "botads-base-url",
		Description: "The Botads Client API base URL",
	},
	&config.Botads.APIToken: {
		Name:        "botads-api-token",
		Description: "The bot API token used as bearer token and, by default, as webhook signing secret",
		Short:       helpers.Ptr("T"),
	},
	&config.Botads.BotID: {
		Name:        "botads-bot-id",
		Description: "The bot identifier codes are issued for",
	},
	&config.Botads.WebhookSecret: {
		Name:        "botads-webhook-secret",
		Description: "Override the secret webhook signatures are verified with",
	},
	&config.Botads.UserAgent: {
		Name:        "botads-user-agent",
		Description: "The User-Agent sent to the Client API",
		Hidden:      true,
	},
	&config.Botads.CredentialsMode: {
		Name:        "botads-credentials-mode",
		Description: "Credentials provider. Supported values are 'env' and 'ssm'",
		Short:       helpers.Ptr("A"),
	},
	&config.Botads.SSMKey: {
		Name:        "botads-ssm-key",
		Description: "The SSM parameter holding the {\"api_token\",\"webhook_secret\"} document",
	},
	&config.Archive.S3.BucketName: {
		Name:        "archive-s3-bucket",
		Description: "The S3 bucket verified webhooks are archived to",
		Env:         helpers.Ptr("S3_BUCKET_NAME"),
	},
	&config.Archive.S3.Prefix: {
		Name:        "archive-s3-prefix",
		Description: "The key prefix of archived webhooks",
	},
	&config.State.Backend: {
		Name:        "state-backend",
		Description: "Bot user state store. Supported values are 'memory' and 'redis'",
	},
	&config.State.Redis.Addr: {
		Name:        "state-redis-addr",
		Description: "The Redis address of the state store",
		Env:         helpers.Ptr("REDIS_ADDR"),
	},
	&config.State.Redis.Password: {
		Name:        "state-redis-password",
		Description: "The Redis password of the state store",
		Env:         helpers.Ptr("REDIS_PASSWORD"),
	},
	&config.State.Redis.KeyPrefix: {
		Name:        "state-redis-key-prefix",
		Description: "The Redis key prefix of the state store",
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
	&config.Archive.S3.Enabled: {
		Name:        "archive-s3",
		Description: "Enable S3 archiving of verified webhooks",
	},
}

var envMapInt = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
		Count:       true,
	},
	&config.State.Redis.DB: {
		Name:        "state-redis-db",
		Description: "The Redis database of the state store",
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Botads.Timeout: {
		Name:        "botads-timeout",
		Description: "The timeout of a single Client API call",
	},
	&config.State.Redis.TTL: {
		Name:        "state-redis-ttl",
		Description: "How long an idle user state is kept in Redis",
	},
}
