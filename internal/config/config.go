// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

const (
	// ModeService runs the HTTP demo service.
	ModeService = "service"
	// ModeTelegram runs the Telegram ad-gate bot.
	ModeTelegram = "telegram"
	// ModeLambda runs the webhook receiver as an AWS Lambda.
	ModeLambda = "lambda"

	// CredentialsModeEnv reads the API token and webhook secret from flags and environment.
	CredentialsModeEnv = "env"
	// CredentialsModeSSM reads them from an SSM parameter.
	CredentialsModeSSM = "ssm"

	// StateBackendMemory keeps bot user state in process.
	StateBackendMemory = "memory"
	// StateBackendRedis keeps bot user state in Redis.
	StateBackendRedis = "redis"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Botads is a struct that contains the configuration for the Botads Client API.
	Botads botads
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
	// Telegram is a struct that contains the configuration for the telegram bot mode.
	Telegram telegram
	// Archive is a struct that contains the configuration for archiving verified webhooks.
	Archive archive
	// State is a struct that contains the configuration for the bot user state store.
	State state
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"service"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
}

type botads struct {
	BaseURL string `yaml:"baseURL,omitempty" default:"https://api.botads.app"`
	// APIToken authenticates Client API calls. Botads signs webhooks with the same token.
	APIToken string `yaml:"apiToken,omitempty"`
	BotID    string `yaml:"botID,omitempty"`
	// WebhookSecret overrides the token as the webhook signing secret.
	WebhookSecret   string        `yaml:"webhookSecret,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty" default:"10s"`
	UserAgent       string        `yaml:"userAgent,omitempty" default:"botads-go"`
	CredentialsMode string        `yaml:"credentialsMode,omitempty" default:"env"`
	SSMKey          string        `yaml:"ssmKey,omitempty"`
}

type service struct {
	Addr        string        `yaml:"addr,omitempty"`
	Port        string        `yaml:"port,omitempty" default:"8080"`
	Timeout     time.Duration `yaml:"timeout,omitempty" default:"5s"`
	WebhookPath string        `yaml:"webhookPath,omitempty" default:"/botads/webhook"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
}

type telegram struct {
	Token      string `yaml:"token,omitempty"`
	WebhookURL string `yaml:"webhookURL,omitempty"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	SecretToken       string        `yaml:"secretToken,omitempty"`
	WebhookPath       string        `yaml:"webhookPath,omitempty" default:"/telegram/webhook"`
	MiniAppURL        string        `yaml:"miniAppURL,omitempty" default:"https://miniapp.example/launch"`
	DirectLinkBaseURL string        `yaml:"directLinkBaseURL,omitempty" default:"https://botads.me/"`
	AdInterval        time.Duration `yaml:"adInterval,omitempty" default:"5m"`
}

type archive struct {
	S3 struct {
		Enabled    bool   `yaml:"enabled,omitempty"`
		BucketName string `yaml:"bucketName,omitempty"`
		Prefix     string `yaml:"prefix,omitempty" default:"webhooks/"`
	} `yaml:"s3,omitempty"`
}

type state struct {
	Backend string `yaml:"backend,omitempty" default:"memory"`
	Redis   struct {
		Addr      string        `yaml:"addr,omitempty" default:"localhost:6379"`
		Password  string        `yaml:"password,omitempty"`
		DB        int           `yaml:"db,omitempty"`
		KeyPrefix string        `yaml:"keyPrefix,omitempty" default:"botads:gate:"`
		TTL       time.Duration `yaml:"ttl,omitempty" default:"168h"`
	} `yaml:"redis,omitempty"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Botads),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
		defaults.Set(&Telegram),
		defaults.Set(&Archive),
		defaults.Set(&State),
	)
}

// Reset clears every section back to its zero value.
func Reset() {
	Global = global{}
	Botads = botads{}
	Service = service{}
	Lambda = lambda{}
	Telegram = telegram{}
	Archive = archive{}
	State = state{}
}

// LoadFromFile loads the configuration from a file.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global   global   `yaml:"global,omitempty"`
		Botads   botads   `yaml:"botads,omitempty"`
		Service  service  `yaml:"service,omitempty"`
		Lambda   lambda   `yaml:"lambda,omitempty"`
		Telegram telegram `yaml:"telegram,omitempty"`
		Archive  archive  `yaml:"archive,omitempty"`
		State    state    `yaml:"state,omitempty"`
	}
	var a all
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	Botads = a.Botads
	Service = a.Service
	Lambda = a.Lambda
	Telegram = a.Telegram
	Archive = a.Archive
	State = a.State

	return nil
}

// WebhookSecret returns the secret webhooks are signed with.
func WebhookSecret() string {
	if Botads.WebhookSecret != "" {
		return Botads.WebhookSecret
	}
	return Botads.APIToken
}
