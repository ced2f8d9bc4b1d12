package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/feedbackrelay/internal/bus"
	"github.com/nextlevelbuilder/feedbackrelay/internal/channels"
	"github.com/nextlevelbuilder/feedbackrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/feedbackrelay/internal/classifier"
	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
	httpapi "github.com/nextlevelbuilder/feedbackrelay/internal/http"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store/pg"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store/pruner"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store/sqlite"
	"github.com/nextlevelbuilder/feedbackrelay/internal/tracing"
	"github.com/nextlevelbuilder/feedbackrelay/internal/triage"
)

func serveCmd() *cobra.Command {
	var setWebhook string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(setWebhook)
		},
	}
	cmd.Flags().StringVar(&setWebhook, "set-webhook", "", "public base URL to register with Telegram before serving (e.g. https://relay.example.com)")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(setWebhook string) error {
	setupLogging()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownTracing(sctx)
	}()

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	tg, err := telegram.New(cfg.Telegram)
	if err != nil {
		return err
	}

	if setWebhook != "" {
		if err := tg.SetWebhook(ctx, webhookURL(setWebhook), cfg.Telegram.WebhookSecret); err != nil {
			return err
		}
	}

	ledger, err := openLedger(cfg.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	events := openEvents(cfg.Kafka)
	defer events.Close()

	pipeline := triage.New(buildDeps(cfg, tg, events))

	webhook := httpapi.NewWebhookHandler(pipeline, tg, httpapi.WebhookOptions{
		Updates:     ledger,
		Limiter:     channels.NewChatRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Secret:      cfg.Telegram.WebhookSecret,
		ErrorChatID: cfg.ErrorChat(),
	})
	server := httpapi.NewServer(cfg.Server.Addr(), cfg.AuthorizedChatID, webhook)

	prune, err := pruner.New(ledger, cfg.Ledger.PruneSchedule, cfg.Ledger.TTLDuration())
	if err != nil {
		return err
	}

	slog.Info("relay starting",
		"version", Version,
		"authorized_chat_id", cfg.AuthorizedChatID,
		"repo", cfg.GitHub.Repo,
		"ledger", cfg.Ledger.Backend,
		"kafka", cfg.Kafka.Enabled(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return prune.Run(gctx) })

	if err := g.Wait(); err != nil {
		slog.Error("relay stopped", "error", err)
		return err
	}
	slog.Info("relay stopped")
	return nil
}

// buildDeps wires the triage collaborators from config. Missing keys leave
// the matching dependency nil so that stage degrades on its own.
func buildDeps(cfg *config.Config, m triage.Messenger, events bus.EventPublisher) triage.Deps {
	deps := triage.Deps{
		AuthorizedChatID: cfg.AuthorizedChatID,
		Messenger:        m,
		Events:           events,
	}

	if cfg.Groq.APIKey != "" {
		prov := providers.NewOpenAIProvider("groq", cfg.Groq.APIKey, cfg.Groq.APIBase, cfg.Groq.Model)
		deps.Classifier = classifier.New(prov, cfg.Groq.Model)
		deps.Transcriber = providers.NewAudioTranscriber(cfg.Groq.APIKey, cfg.Groq.APIBase, cfg.Groq.TranscriptionModel)
	} else {
		slog.Warn("GROQ_API_KEY not set: voice notes will not be transcribed and every message gets the default classification")
	}

	if cfg.GitHub.Token != "" && cfg.GitHub.Repo != "" {
		deps.Issues = github.NewClient(cfg.GitHub.Token, cfg.GitHub.Repo, cfg.GitHub.APIBase)
	} else {
		slog.Warn("GITHUB_TOKEN not set: github actions will be reported as failed")
	}
	return deps
}

func openLedger(cfg config.LedgerConfig) (store.UpdateStore, error) {
	switch cfg.Backend {
	case config.LedgerPostgres:
		s, err := pg.NewPGUpdateStore(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return s, nil
	case config.LedgerSQLite:
		s, err := sqlite.Open(config.ExpandHome(cfg.SQLitePath))
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryUpdateStore(), nil
	}
}

func openEvents(cfg config.KafkaConfig) bus.EventPublisher {
	if !cfg.Enabled() {
		return bus.NopPublisher{}
	}
	slog.Info("publishing triage events", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return bus.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// webhookURL appends the webhook route to a public base URL.
func webhookURL(base string) string {
	return strings.TrimRight(base, "/") + "/webhook/telegram"
}
