package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wemix/lagwatch/pkg/logger"
)

// Channel types
const (
	ChannelTelegram = "telegram"
	ChannelSlack    = "slack"
	ChannelDiscord  = "discord"
	ChannelWebhook  = "webhook"
)

const (
	// DefaultTelegramAPIURL is the Bot API base URL
	DefaultTelegramAPIURL = "https://api.telegram.org"

	// DefaultChannelTimeout bounds a single delivery
	DefaultChannelTimeout = 10 * time.Second
)

// ChannelConfig represents notification channel configuration
type ChannelConfig struct {
	Type     string `mapstructure:"type" json:"type"`
	Name     string `mapstructure:"name" json:"name"`
	Disabled bool   `mapstructure:"disabled" json:"disabled"`

	// Telegram
	BotToken string `mapstructure:"bot_token" json:"-"`
	ChatID   string `mapstructure:"chat_id" json:"chat_id,omitempty"`
	APIURL   string `mapstructure:"api_url" json:"api_url,omitempty"`

	// Slack, Discord and generic webhooks
	URL     string            `mapstructure:"url" json:"url,omitempty"`
	Method  string            `mapstructure:"method" json:"method,omitempty"`
	Headers map[string]string `mapstructure:"headers" json:"-"`
	Timeout time.Duration     `mapstructure:"timeout" json:"timeout,omitempty"`
}

// NotificationChannel delivers a text message to an external service
type NotificationChannel interface {
	Send(ctx context.Context, text string) error
	GetType() string
	GetName() string
	IsEnabled() bool
}

// NewChannel creates a notification channel based on configuration.
// Sends are bounded by the caller's context; the Dispatcher applies cfg.Timeout.
func NewChannel(cfg ChannelConfig, log *logger.Logger) (NotificationChannel, error) {
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}
	client := &http.Client{}

	switch strings.ToLower(cfg.Type) {
	case ChannelTelegram:
		return NewTelegramChannel(cfg, client, log)
	case ChannelSlack:
		return NewSlackChannel(cfg, client, log)
	case ChannelDiscord:
		return NewDiscordChannel(cfg, client, log)
	case ChannelWebhook:
		return NewWebhookChannel(cfg, client, log)
	default:
		return nil, fmt.Errorf("unknown channel type: %s", cfg.Type)
	}
}

// TelegramChannel sends messages through the Telegram Bot API
type TelegramChannel struct {
	name     string
	enabled  bool
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
	logger   *logger.Logger
}

// NewTelegramChannel creates a new Telegram notification channel
func NewTelegramChannel(cfg ChannelConfig, client *http.Client, log *logger.Logger) (*TelegramChannel, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot_token is required for Telegram channel")
	}
	if cfg.ChatID == "" {
		return nil, fmt.Errorf("chat_id is required for Telegram channel")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}

	return &TelegramChannel{
		name:     cfg.Name,
		enabled:  !cfg.Disabled,
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
		logger:   log,
	}, nil
}

// Send posts {chat_id, text} to sendMessage
func (t *TelegramChannel) Send(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id": t.chatID,
		"text":    text,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)
	if err := postJSON(ctx, t.client, http.MethodPost, url, nil, payload); err != nil {
		// the URL carries the token, keep it out of the error
		return fmt.Errorf("failed to send Telegram message: %w", redact(err, t.botToken))
	}
	return nil
}

// GetType returns the channel type
func (t *TelegramChannel) GetType() string {
	return ChannelTelegram
}

// GetName returns the channel name
func (t *TelegramChannel) GetName() string {
	return t.name
}

// IsEnabled returns whether the channel is enabled
func (t *TelegramChannel) IsEnabled() bool {
	return t.enabled
}

// SlackChannel sends notifications to a Slack incoming webhook
type SlackChannel struct {
	name       string
	enabled    bool
	webhookURL string
	client     *http.Client
	logger     *logger.Logger
}

// NewSlackChannel creates a new Slack notification channel
func NewSlackChannel(cfg ChannelConfig, client *http.Client, log *logger.Logger) (*SlackChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for Slack channel")
	}

	return &SlackChannel{
		name:       cfg.Name,
		enabled:    !cfg.Disabled,
		webhookURL: cfg.URL,
		client:     client,
		logger:     log,
	}, nil
}

// Send sends a Slack notification
func (s *SlackChannel) Send(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"text": text,
	}
	if err := postJSON(ctx, s.client, http.MethodPost, s.webhookURL, nil, payload); err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	return nil
}

// GetType returns the channel type
func (s *SlackChannel) GetType() string {
	return ChannelSlack
}

// GetName returns the channel name
func (s *SlackChannel) GetName() string {
	return s.name
}

// IsEnabled returns whether the channel is enabled
func (s *SlackChannel) IsEnabled() bool {
	return s.enabled
}

// DiscordChannel sends notifications to a Discord webhook
type DiscordChannel struct {
	name       string
	enabled    bool
	webhookURL string
	client     *http.Client
	logger     *logger.Logger
}

// NewDiscordChannel creates a new Discord notification channel
func NewDiscordChannel(cfg ChannelConfig, client *http.Client, log *logger.Logger) (*DiscordChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for Discord channel")
	}

	return &DiscordChannel{
		name:       cfg.Name,
		enabled:    !cfg.Disabled,
		webhookURL: cfg.URL,
		client:     client,
		logger:     log,
	}, nil
}

// Send sends a Discord notification
func (d *DiscordChannel) Send(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"content": text,
	}
	if err := postJSON(ctx, d.client, http.MethodPost, d.webhookURL, nil, payload); err != nil {
		return fmt.Errorf("failed to send Discord notification: %w", err)
	}
	return nil
}

// GetType returns the channel type
func (d *DiscordChannel) GetType() string {
	return ChannelDiscord
}

// GetName returns the channel name
func (d *DiscordChannel) GetName() string {
	return d.name
}

// IsEnabled returns whether the channel is enabled
func (d *DiscordChannel) IsEnabled() bool {
	return d.enabled
}

// WebhookChannel sends notifications to a generic webhook
type WebhookChannel struct {
	name    string
	enabled bool
	url     string
	method  string
	headers map[string]string
	client  *http.Client
	logger  *logger.Logger
}

// NewWebhookChannel creates a new webhook notification channel
func NewWebhookChannel(cfg ChannelConfig, client *http.Client, log *logger.Logger) (*WebhookChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for webhook channel")
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers[key] = value
	}

	return &WebhookChannel{
		name:    cfg.Name,
		enabled: !cfg.Disabled,
		url:     cfg.URL,
		method:  method,
		headers: headers,
		client:  client,
		logger:  log,
	}, nil
}

// Send sends a webhook notification
func (w *WebhookChannel) Send(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"text":   text,
		"source": "lagwatch",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := postJSON(ctx, w.client, w.method, w.url, w.headers, payload); err != nil {
		return fmt.Errorf("failed to send webhook notification: %w", err)
	}
	return nil
}

// GetType returns the channel type
func (w *WebhookChannel) GetType() string {
	return ChannelWebhook
}

// GetName returns the channel name
func (w *WebhookChannel) GetName() string {
	return w.name
}

// IsEnabled returns whether the channel is enabled
func (w *WebhookChannel) IsEnabled() bool {
	return w.enabled
}

// postJSON sends payload as JSON and treats any non-2xx status as an error
func postJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return nil
}

// redact replaces a secret inside an error message
func redact(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), secret, "<redacted>"))
}
