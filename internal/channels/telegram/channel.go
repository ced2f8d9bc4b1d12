package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
)

// DefaultAPIServer is the public Bot API root.
const DefaultAPIServer = "https://api.telegram.org"

// Channel talks to the Telegram Bot API on behalf of the webhook relay.
// Inbound updates arrive over HTTP; Channel only performs outbound calls.
type Channel struct {
	bot       *telego.Bot
	token     string
	apiServer string
	client    *http.Client
	maxBytes  int64
}

// New creates a Telegram channel from config.
func New(cfg config.TelegramConfig) (*Channel, error) {
	client := &http.Client{Timeout: 60 * time.Second}

	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	apiServer := strings.TrimRight(cfg.APIServer, "/")
	if apiServer == "" {
		apiServer = DefaultAPIServer
	}

	bot, err := telego.NewBot(cfg.Token,
		telego.WithHTTPClient(client),
		telego.WithAPIServer(apiServer),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	maxBytes := cfg.MediaMaxBytes
	if maxBytes == 0 {
		maxBytes = defaultMediaMaxBytes
	}

	return &Channel{
		bot:       bot,
		token:     cfg.Token,
		apiServer: apiServer,
		client:    client,
		maxBytes:  maxBytes,
	}, nil
}

// SendMarkdown sends text to chatID with legacy Markdown parse mode. If
// Telegram cannot parse the markup the text is resent without a parse mode.
func (c *Channel) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	msg := tu.Message(tu.ID(chatID), text)
	msg.ParseMode = telego.ModeMarkdown

	_, err := c.bot.SendMessage(ctx, msg)
	if err != nil && strings.Contains(err.Error(), "can't parse entities") {
		slog.Warn("telegram.markdown_rejected", "chat_id", chatID, "error", err)
		msg.ParseMode = ""
		_, err = c.bot.SendMessage(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	return nil
}

// SetWebhook registers publicURL with Telegram. secret, when set, is echoed
// back by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *Channel) SetWebhook(ctx context.Context, publicURL, secret string) error {
	params := &telego.SetWebhookParams{
		URL:            publicURL,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	}
	if err := c.bot.SetWebhook(ctx, params); err != nil {
		return fmt.Errorf("telegram setWebhook: %w", err)
	}
	slog.Info("telegram webhook registered", "url", publicURL)
	return nil
}

// WebhookStatus is the subset of getWebhookInfo that doctor reports.
type WebhookStatus struct {
	BotUsername  string
	URL          string
	Pending      int
	LastErrorMsg string
}

// Status calls getMe and getWebhookInfo.
func (c *Channel) Status(ctx context.Context) (*WebhookStatus, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("telegram getWebhookInfo: %w", err)
	}
	return &WebhookStatus{
		BotUsername:  me.Username,
		URL:          info.URL,
		Pending:      info.PendingUpdateCount,
		LastErrorMsg: info.LastErrorMessage,
	}, nil
}
