package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadOptions tells Load where to look
type LoadOptions struct {
	// ConfigFile is required to exist
	ConfigFile string
	// TelegramFile is optional unless it was set explicitly
	TelegramFile         string
	TelegramFileExplicit bool
	// EnvFile is loaded into the process environment when present
	EnvFile string
	// EnvPrefix prefixes environment overrides (LAGWATCH_CHECK_INTERVAL, ...)
	EnvPrefix string
}

// DefaultLoadOptions returns the original file layout
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ConfigFile:   DefaultConfigFile,
		TelegramFile: DefaultTelegramFile,
		EnvFile:      DefaultEnvFile,
		EnvPrefix:    DefaultEnvPrefix,
	}
}

// Load reads the configuration once. Any error is fatal for the caller.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = DefaultEnvPrefix
	}
	if opts.EnvFile != "" {
		// a missing .env is normal
		_ = godotenv.Load(opts.EnvFile)
	}

	cfg := DefaultConfig()

	v := newViper(opts.EnvPrefix)
	setDefaults(v, cfg)
	v.SetConfigFile(opts.ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read configuration file %s: %w", opts.ConfigFile, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration file %s: %w", opts.ConfigFile, err)
	}

	telegram, err := loadTelegram(opts)
	if err != nil {
		return nil, err
	}
	cfg.Telegram = telegram

	return cfg, nil
}

// loadTelegram reads telegram.yml and applies the environment overrides
func loadTelegram(opts LoadOptions) (TelegramConfig, error) {
	var telegram TelegramConfig

	v := newViper(opts.EnvPrefix + "_TELEGRAM")
	v.SetDefault("bot_token", "")
	v.SetDefault("chat_id", "")
	v.SetDefault("api_url", "")

	if opts.TelegramFile != "" {
		_, statErr := os.Stat(opts.TelegramFile)
		switch {
		case statErr == nil:
			v.SetConfigFile(opts.TelegramFile)
			if err := v.ReadInConfig(); err != nil {
				return telegram, fmt.Errorf("cannot read telegram configuration %s: %w", opts.TelegramFile, err)
			}
		case errors.Is(statErr, os.ErrNotExist) && !opts.TelegramFileExplicit:
		default:
			return telegram, fmt.Errorf("cannot access telegram configuration %s: %w", opts.TelegramFile, statErr)
		}
	}

	if err := v.Unmarshal(&telegram); err != nil {
		return telegram, fmt.Errorf("invalid telegram configuration: %w", err)
	}
	return telegram, nil
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers the scalar defaults so environment overrides apply
// even when a key is absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("check.interval", cfg.Check.Interval)
	v.SetDefault("check.timeout", cfg.Check.Timeout)
	v.SetDefault("check.notify_timeout", cfg.Check.NotifyTimeout)
	v.SetDefault("state.backend", cfg.State.Backend)
	v.SetDefault("state.path", cfg.State.Path)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.color", cfg.Log.Color)
	v.SetDefault("log.disable", cfg.Log.Disable)
	v.SetDefault("log.time_format", cfg.Log.TimeFormat)
	v.SetDefault("api.enabled", cfg.API.Enabled)
	v.SetDefault("api.host", cfg.API.Host)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.cors_origins", cfg.API.CORSOrigins)
	v.SetDefault("api.jwt_secret", cfg.API.JWTSecret)
	v.SetDefault("api.debug", cfg.API.Debug)
	v.SetDefault("node.url", "")
}
