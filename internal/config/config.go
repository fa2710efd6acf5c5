package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wemix/lagwatch/internal/alerting"
	"github.com/wemix/lagwatch/internal/state"
)

// Default configuration values
const (
	DefaultConfigFile   = "config/config.yml"
	DefaultTelegramFile = "config/telegram.yml"
	DefaultEnvFile      = ".env"
	DefaultEnvPrefix    = "LAGWATCH"

	DefaultCheckInterval = 15 * time.Second
	DefaultFetchTimeout  = 5 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
	MinCheckInterval     = time.Second

	DefaultStateBackend = state.BackendFile

	DefaultLogLevel      = "info"
	DefaultTimeFormatLog = "iso8601"

	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 9650
)

var levelKey = regexp.MustCompile(`^level_([1-5])$`)

// Endpoint is an RPC endpoint entry
type Endpoint struct {
	URL string `mapstructure:"url" json:"url"`
}

// CheckConfig controls the check cycle
type CheckConfig struct {
	Interval      time.Duration `mapstructure:"interval" json:"interval"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout" json:"notify_timeout"`
}

// LogConfig controls the logger
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Color      bool   `mapstructure:"color" json:"color"`
	Disable    bool   `mapstructure:"disable" json:"disable"`
	TimeFormat string `mapstructure:"time_format" json:"time_format"`
}

// APIConfig controls the status server
type APIConfig struct {
	Enabled     bool     `mapstructure:"enabled" json:"enabled"`
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	JWTSecret   string   `mapstructure:"jwt_secret" json:"-"`
	Debug       bool     `mapstructure:"debug" json:"debug"`
}

// Addr returns host:port
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// TelegramConfig holds the bot credentials from telegram.yml
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

// Configured reports whether credentials are present
func (t TelegramConfig) Configured() bool {
	return t.BotToken != "" || t.ChatID != ""
}

// Config holds all configuration for lagwatch
type Config struct {
	// Reference endpoints and the monitored node
	RPCs []Endpoint `mapstructure:"rpcs" json:"rpcs"`
	Node Endpoint   `mapstructure:"node" json:"node"`

	// Alerts is the list form of the thresholds: [{level_1: 10}, {level_2: 50}, ...]
	Alerts []map[string]int64 `mapstructure:"alerts" json:"alerts"`

	Check     CheckConfig              `mapstructure:"check" json:"check"`
	State     state.Config             `mapstructure:"state" json:"state"`
	Log       LogConfig                `mapstructure:"log" json:"log"`
	API       APIConfig                `mapstructure:"api" json:"api"`
	Notifiers []alerting.ChannelConfig `mapstructure:"notifiers" json:"notifiers"`

	// Telegram is read from its own file
	Telegram TelegramConfig `mapstructure:"-" json:"-"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Check: CheckConfig{
			Interval:      DefaultCheckInterval,
			Timeout:       DefaultFetchTimeout,
			NotifyTimeout: DefaultNotifyTimeout,
		},
		State: state.Config{
			Backend: DefaultStateBackend,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			TimeFormat: DefaultTimeFormatLog,
		},
		API: APIConfig{
			Host:        DefaultAPIHost,
			Port:        DefaultAPIPort,
			CORSOrigins: []string{"*"},
		},
	}
}

// RPCURLs returns the reference endpoint URLs
func (c *Config) RPCURLs() []string {
	urls := make([]string, len(c.RPCs))
	for i, rpc := range c.RPCs {
		urls[i] = rpc.URL
	}
	return urls
}

// Thresholds builds the threshold table from the alerts list.
// Every level_1..level_5 key must appear exactly once.
func (c *Config) Thresholds() (alerting.Thresholds, error) {
	var thresholds alerting.Thresholds
	var seen [alerting.MaxLevel]bool

	for _, entry := range c.Alerts {
		for key, value := range entry {
			m := levelKey.FindStringSubmatch(strings.ToLower(key))
			if m == nil {
				return thresholds, fmt.Errorf("unknown alert key %q", key)
			}
			n, _ := strconv.Atoi(m[1])
			if seen[n-1] {
				return thresholds, fmt.Errorf("duplicate alert key %q", key)
			}
			seen[n-1] = true
			thresholds[n-1] = value
		}
	}

	for i, ok := range seen {
		if !ok {
			return thresholds, fmt.Errorf("missing alert threshold level_%d", i+1)
		}
	}

	return thresholds, nil
}

// ChannelConfigs returns the notifier list with the Telegram credentials
// prepended when they are configured.
func (c *Config) ChannelConfigs() []alerting.ChannelConfig {
	channels := make([]alerting.ChannelConfig, 0, len(c.Notifiers)+1)
	if c.Telegram.Configured() {
		channels = append(channels, alerting.ChannelConfig{
			Type:     alerting.ChannelTelegram,
			Name:     alerting.ChannelTelegram,
			BotToken: c.Telegram.BotToken,
			ChatID:   c.Telegram.ChatID,
			APIURL:   c.Telegram.APIURL,
			Timeout:  c.Check.NotifyTimeout,
		})
	}
	for _, n := range c.Notifiers {
		if n.Timeout <= 0 {
			n.Timeout = c.Check.NotifyTimeout
		}
		channels = append(channels, n)
	}
	return channels
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.RPCs) == 0 {
		return fmt.Errorf("no reference rpc endpoints configured")
	}
	for i, rpc := range c.RPCs {
		if err := validateURL(rpc.URL); err != nil {
			return fmt.Errorf("rpcs[%d]: %w", i, err)
		}
	}
	if err := validateURL(c.Node.URL); err != nil {
		return fmt.Errorf("node: %w", err)
	}

	if _, err := c.Thresholds(); err != nil {
		return fmt.Errorf("alerts: %w", err)
	}

	if c.Check.Interval < MinCheckInterval {
		return fmt.Errorf("check interval too short (minimum %v)", MinCheckInterval)
	}
	if c.Check.Timeout <= 0 {
		return fmt.Errorf("check timeout must be positive")
	}

	switch strings.ToLower(c.State.Backend) {
	case state.BackendFile, state.BackendLevelDB:
	default:
		return fmt.Errorf("unknown state backend: %s", c.State.Backend)
	}

	if len(c.ChannelConfigs()) == 0 {
		return fmt.Errorf("no notification channel configured")
	}

	if c.API.Enabled && (c.API.Port <= 0 || c.API.Port > 65535) {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}

	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url not set")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}
