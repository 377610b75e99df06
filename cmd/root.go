// Package cmd provides the entrypoint for the botads cli.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/botads/botads-go/internal/config"
	"github.com/botads/botads-go/internal/helpers"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envConfigFile = "BOTADS_CONFIG"
	envDotEnvFile = "BOTADS_ENV_FILE"
)

var logger = helpers.NewNoopLogger()

// New returns the root command for botads.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "botads",
		Short:         "Botads webhook receiver, short code client and Telegram ad-gate bot",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.Global.Mode = strings.TrimSpace(config.Global.Mode)
			logger = helpers.NewLogger(config.Global.Logging.Verbosity, config.Global.Logging.CallerTrace, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch config.Global.Mode {
			case config.ModeService:
				return cmdService().RunE(cmd, args)
			case config.ModeTelegram:
				return cmdTelegram().RunE(cmd, args)
			case config.ModeLambda:
				return chainCommands(cmd, args, cmdLambdaHTTP().RunE)
			default:
				return fmt.Errorf("invalid mode: %s", config.Global.Mode)
			}
		},
	}

	// Configuration loading & defaults
	if err := loadConfiguration(); err != nil {
		panic(err)
	}

	// Dynamic flags
	setupDynamicFlags(cmd)

	// Subcommands
	cmd.AddCommand(
		cmdService(),
		cmdTelegram(),
		cmdLambda(),
		cmdCode(),
	)

	return cmd
}

func loadConfiguration() error {
	envFile := os.Getenv(envDotEnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	configFile := os.Getenv(envConfigFile)
	if configFile == "" {
		configFile = "config.yaml"
	}
	config.Reset()
	return errors.Join(
		config.LoadFromFile(configFile),
		config.SetDefaults(),
	)
}

func setupDynamicFlags(cmd *cobra.Command) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(replacer)

	bindEnvMap(cmd, envMapString)
	bindEnvMap(cmd, envMapBool)
	bindEnvMap(cmd, envMapInt)
	bindEnvMap(cmd, envMapDuration)
	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapDuration)
	bindEnvMap(cmd, telegramEnvMapString)
	bindEnvMap(cmd, telegramEnvMapDuration)
	bindEnvMap(cmd, lambdaEnvMapString)
}

func loggerFor(component string) *slog.Logger {
	return logger.With("component", component)
}
