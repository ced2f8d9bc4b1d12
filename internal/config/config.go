package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultAuthorizedChatID is the single chat the relay accepts updates from
// when no override is configured.
const DefaultAuthorizedChatID int64 = 6236482920

// Config is the root configuration for the feedback relay.
// It is built once by Load and treated as read-only afterwards.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	Groq      GroqConfig      `json:"groq" yaml:"groq"`
	GitHub    GitHubConfig    `json:"github" yaml:"github"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Ledger    LedgerConfig    `json:"ledger" yaml:"ledger"`
	Kafka     KafkaConfig     `json:"kafka,omitempty" yaml:"kafka,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`

	// AuthorizedChatID is the only chat whose updates are processed.
	AuthorizedChatID int64 `json:"authorized_chat_id" yaml:"authorized_chat_id"`
	// ErrorChatID receives the generic failure notice when the originating
	// chat is unknown. Zero means AuthorizedChatID.
	ErrorChatID int64 `json:"error_chat_id,omitempty" yaml:"error_chat_id,omitempty"`
}

// GroqConfig configures the OpenAI-compatible endpoint used for both
// classification and speech-to-text.
type GroqConfig struct {
	APIKey             string `json:"api_key" yaml:"api_key"`
	APIBase            string `json:"api_base,omitempty" yaml:"api_base,omitempty"`
	Model              string `json:"model,omitempty" yaml:"model,omitempty"`                             // chat model for classification
	TranscriptionModel string `json:"transcription_model,omitempty" yaml:"transcription_model,omitempty"` // default "whisper-large-v3"
}

// GitHubConfig configures issue creation.
type GitHubConfig struct {
	Token   string `json:"token" yaml:"token"`
	Repo    string `json:"repo" yaml:"repo"` // "owner/name"
	APIBase string `json:"api_base,omitempty" yaml:"api_base,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig bounds how many updates per chat are processed.
// PerMinute <= 0 disables limiting.
type RateLimitConfig struct {
	PerMinute int `json:"per_minute" yaml:"per_minute"`
	Burst     int `json:"burst" yaml:"burst"`
}

// LedgerConfig configures the processed-update ledger used to drop
// redelivered webhook updates.
// PostgresDSN is NEVER read from the config file (secret), only from env RELAY_POSTGRES_DSN.
type LedgerConfig struct {
	Backend       string `json:"backend" yaml:"backend"` // "memory" (default), "sqlite", "postgres"
	SQLitePath    string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	PostgresDSN   string `json:"-" yaml:"-"`
	TTL           string `json:"ttl,omitempty" yaml:"ttl,omitempty"`                       // Go duration, default "24h"
	PruneSchedule string `json:"prune_schedule,omitempty" yaml:"prune_schedule,omitempty"` // cron expression, default "*/15 * * * *"
}

// TTLDuration parses TTL, falling back to 24h.
func (l LedgerConfig) TTLDuration() time.Duration {
	if d, err := time.ParseDuration(l.TTL); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// KafkaConfig enables publishing triage outcome events.
// Empty Brokers disables the publisher.
type KafkaConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// Enabled reports whether a Kafka sink is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// TelemetryConfig configures OpenTelemetry export for pipeline spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`         // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty" yaml:"protocol,omitempty"`         // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty" yaml:"insecure,omitempty"`         // plaintext transport, for local collectors
	ServiceName string            `json:"service_name,omitempty" yaml:"service_name,omitempty"` // default "feedback-relay"
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ErrorChat returns the chat that receives failure notices for updates
// without a known origin.
func (c *Config) ErrorChat() int64 {
	if c.ErrorChatID != 0 {
		return c.ErrorChatID
	}
	return c.AuthorizedChatID
}

// Validate checks settings that would make the relay unusable.
// Missing secrets are not errors here: each dependent stage degrades on its own.
func (c *Config) Validate() error {
	if c.AuthorizedChatID == 0 {
		return fmt.Errorf("authorized_chat_id must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.GitHub.Repo != "" && strings.Count(strings.Trim(c.GitHub.Repo, "/"), "/") != 1 {
		return fmt.Errorf("github repo %q must be owner/name", c.GitHub.Repo)
	}
	switch c.Ledger.Backend {
	case "", LedgerMemory, LedgerSQLite:
	case LedgerPostgres:
		if c.Ledger.PostgresDSN == "" {
			return fmt.Errorf("ledger backend postgres requires RELAY_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("unknown telemetry protocol %q", c.Telemetry.Protocol)
	}
	return nil
}

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)
