package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Defaults applied before the config file and env overlay.
const (
	DefaultGitHubRepo    = "nextlevelbuilder/agency-portal"
	DefaultChatModel     = "llama-3.3-70b-versatile"
	DefaultPort          = 3000
	DefaultPruneSchedule = "*/15 * * * *"
	DefaultKafkaTopic    = "feedback.triage"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Groq: GroqConfig{
			Model: DefaultChatModel,
		},
		GitHub: GitHubConfig{
			Repo: DefaultGitHubRepo,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 20,
			Burst:     5,
		},
		Ledger: LedgerConfig{
			Backend:       LedgerMemory,
			SQLitePath:    "~/.relay/ledger.db",
			TTL:           "24h",
			PruneSchedule: DefaultPruneSchedule,
		},
		Kafka: KafkaConfig{
			Topic: DefaultKafkaTopic,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "feedback-relay",
		},
		AuthorizedChatID: DefaultAuthorizedChatID,
	}
}

// Load reads config from a JSON5 or YAML file, then overlays env vars.
// A missing file is not an error; the relay can run from env alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json5.Unmarshal(data, cfg)
	}
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n != 0 {
				*dst = n
			}
		}
	}

	envStr("TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("GROQ_API_KEY", &c.Groq.APIKey)
	envStr("GITHUB_TOKEN", &c.GitHub.Token)
	envStr("GITHUB_REPO", &c.GitHub.Repo)
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	envInt64("RELAY_AUTHORIZED_CHAT_ID", &c.AuthorizedChatID)
	envInt64("RELAY_ERROR_CHAT_ID", &c.ErrorChatID)
	envStr("RELAY_WEBHOOK_SECRET", &c.Telegram.WebhookSecret)
	envStr("RELAY_GROQ_MODEL", &c.Groq.Model)

	// Ledger
	envStr("RELAY_LEDGER_BACKEND", &c.Ledger.Backend)
	envStr("RELAY_POSTGRES_DSN", &c.Ledger.PostgresDSN)
	if c.Ledger.PostgresDSN != "" && os.Getenv("RELAY_LEDGER_BACKEND") == "" && c.Ledger.Backend == LedgerMemory {
		c.Ledger.Backend = LedgerPostgres
	}

	// Telemetry
	if v := os.Getenv("RELAY_OTEL_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}

	// Kafka brokers (comma-separated)
	if v := os.Getenv("RELAY_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
}

// StripSecrets zeros out all secret fields in the config.
// Used before saving to disk so secrets never persist in the config file.
func (c *Config) StripSecrets() {
	c.Telegram.Token = ""
	c.Telegram.WebhookSecret = ""
	c.Groq.APIKey = ""
	c.GitHub.Token = ""
	c.Ledger.PostgresDSN = ""
}

// Save writes the config to path as indented JSON, without secrets.
func Save(path string, cfg *Config) error {
	cp := *cfg
	cp.StripSecrets()

	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
