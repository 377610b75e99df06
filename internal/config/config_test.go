package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/botads/botads-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	require.NoError(t, config.SetDefaults())
	assert.Equal(t, config.ModeService, config.Global.Mode)
	assert.Equal(t, "https://api.botads.app", config.Botads.BaseURL)
	assert.Equal(t, 10*time.Second, config.Botads.Timeout)
	assert.Equal(t, config.CredentialsModeEnv, config.Botads.CredentialsMode)
	assert.Equal(t, "8080", config.Service.Port)
	assert.Equal(t, "/botads/webhook", config.Service.WebhookPath)
	assert.Equal(t, "api-gateway-v2", config.Lambda.PayloadType)
	assert.Equal(t, 5*time.Minute, config.Telegram.AdInterval)
	assert.Equal(t, "https://botads.me/", config.Telegram.DirectLinkBaseURL)
	assert.Equal(t, config.StateBackendMemory, config.State.Backend)
	assert.Equal(t, "botads:gate:", config.State.Redis.KeyPrefix)
	assert.False(t, config.Archive.S3.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	testCases := []struct {
		Name        string
		Content     *string
		Dir         bool
		ExpectError bool
		Check       func(t *testing.T)
	}{
		{
			Name: "missing_file_is_ignored",
			Check: func(t *testing.T) {
				assert.Equal(t, config.ModeService, config.Global.Mode)
			},
		},
		{
			Name:        "directory",
			Dir:         true,
			ExpectError: true,
		},
		{
			Name:        "invalid_yaml",
			Content:     ptr("global: [unterminated"),
			ExpectError: true,
		},
		{
			Name: "overrides_and_defaults",
			Content: ptr(`
global:
  mode: telegram
  logging:
    verbosity: 2
botads:
  apiToken: token
  botID: "123456789"
  timeout: 3s
telegram:
  adInterval: 1m
state:
  backend: redis
  redis:
    addr: redis:6379
`),
			Check: func(t *testing.T) {
				assert.Equal(t, config.ModeTelegram, config.Global.Mode)
				assert.Equal(t, 2, config.Global.Logging.Verbosity)
				assert.Equal(t, "token", config.Botads.APIToken)
				assert.Equal(t, "123456789", config.Botads.BotID)
				assert.Equal(t, 3*time.Second, config.Botads.Timeout)
				assert.Equal(t, time.Minute, config.Telegram.AdInterval)
				assert.Equal(t, "redis:6379", config.State.Redis.Addr)
				// untouched fields still receive their defaults
				assert.Equal(t, "https://api.botads.app", config.Botads.BaseURL)
				assert.Equal(t, "botads:gate:", config.State.Redis.KeyPrefix)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			config.Reset()
			t.Cleanup(config.Reset)

			path := filepath.Join(t.TempDir(), "config.yaml")
			switch {
			case tc.Dir:
				require.NoError(t, os.Mkdir(path, 0o755))
			case tc.Content != nil:
				require.NoError(t, os.WriteFile(path, []byte(*tc.Content), 0o600))
			}

			err := config.LoadFromFile(path)
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, config.SetDefaults())
			tc.Check(t)
		})
	}
}

func TestWebhookSecret(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	config.Botads.APIToken = "token"
	assert.Equal(t, "token", config.WebhookSecret())

	config.Botads.WebhookSecret = "secret"
	assert.Equal(t, "secret", config.WebhookSecret())
}

func ptr(s string) *string {
	return &s
}
