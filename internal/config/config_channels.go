package config

// TelegramConfig configures the Bot API client and the inbound webhook.
type TelegramConfig struct {
	Token         string `json:"token" yaml:"token"`
	Proxy         string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	APIServer     string `json:"api_server,omitempty" yaml:"api_server,omitempty"`           // default "https://api.telegram.org"
	MediaMaxBytes int64  `json:"media_max_bytes,omitempty" yaml:"media_max_bytes,omitempty"` // max voice download size in bytes (default 20MB)
	WebhookSecret string `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`   // expected X-Telegram-Bot-Api-Secret-Token, empty = unchecked
}
