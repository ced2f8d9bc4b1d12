package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/feedbackrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store/pg"
)

func doctorCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity of every dependency",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.OutOrStdout(), offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only inspect configuration, make no network calls")
	return cmd
}

func runDoctor(w io.Writer, offline bool) {
	fmt.Fprintln(w, "relay doctor")
	fmt.Fprintf(w, "  Version:  %s\n", Version)
	fmt.Fprintf(w, "  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  Go:       %s\n", runtime.Version())
	fmt.Fprintln(w)

	cfgPath := resolveConfigPath()
	fmt.Fprintf(w, "  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Fprintln(w, " (NOT FOUND, using defaults and environment)")
	} else {
		fmt.Fprintln(w, " (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(w, "  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "  Config invalid: %s\n", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Credentials:")
	checkSecret(w, "Telegram", cfg.Telegram.Token)
	checkSecret(w, "Groq", cfg.Groq.APIKey)
	checkSecret(w, "GitHub", cfg.GitHub.Token)
	fmt.Fprintf(w, "    %-12s %d\n", "Chat:", cfg.AuthorizedChatID)
	fmt.Fprintf(w, "    %-12s %s\n", "Repo:", cfg.GitHub.Repo)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Ledger:")
	fmt.Fprintf(w, "    %-12s %s\n", "Backend:", cfg.Ledger.Backend)
	fmt.Fprintf(w, "    %-12s %s\n", "TTL:", cfg.Ledger.TTLDuration())
	fmt.Fprintf(w, "    %-12s %s\n", "Prune:", cfg.Ledger.PruneSchedule)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Events:")
	if cfg.Kafka.Enabled() {
		fmt.Fprintf(w, "    %-12s %s -> %s\n", "Kafka:", strings.Join(cfg.Kafka.Brokers, ","), cfg.Kafka.Topic)
	} else {
		fmt.Fprintf(w, "    %-12s disabled\n", "Kafka:")
	}
	if cfg.Telemetry.Enabled {
		fmt.Fprintf(w, "    %-12s %s (%s)\n", "OTLP:", cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	} else {
		fmt.Fprintf(w, "    %-12s disabled\n", "OTLP:")
	}

	if offline {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Doctor check complete (offline).")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Connectivity:")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkTelegram(ctx, w, cfg)
	if cfg.Groq.APIKey != "" {
		if verr := verifyGroq(cfg); verr != nil {
			fmt.Fprintf(w, "    %-12s FAILED (%s)\n", "Groq:", verr.message)
		} else {
			fmt.Fprintf(w, "    %-12s OK\n", "Groq:")
		}
	}
	if cfg.GitHub.Token != "" {
		if err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.Repo, cfg.GitHub.APIBase).CheckAccess(ctx); err != nil {
			fmt.Fprintf(w, "    %-12s FAILED (%s)\n", "GitHub:", err)
		} else {
			fmt.Fprintf(w, "    %-12s OK\n", "GitHub:")
		}
	}
	if cfg.Ledger.Backend == config.LedgerPostgres {
		checkPostgres(ctx, w, cfg.Ledger.PostgresDSN)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor check complete.")
}

func checkTelegram(ctx context.Context, w io.Writer, cfg *config.Config) {
	if cfg.Telegram.Token == "" {
		return
	}
	tg, err := telegram.New(cfg.Telegram)
	if err != nil {
		fmt.Fprintf(w, "    %-12s FAILED (%s)\n", "Telegram:", err)
		return
	}
	st, err := tg.Status(ctx)
	if err != nil {
		fmt.Fprintf(w, "    %-12s FAILED (%s)\n", "Telegram:", err)
		return
	}
	fmt.Fprintf(w, "    %-12s @%s\n", "Telegram:", st.BotUsername)
	if st.URL == "" {
		fmt.Fprintf(w, "    %-12s not registered (run: relay serve --set-webhook <url>)\n", "Webhook:")
		return
	}
	fmt.Fprintf(w, "    %-12s %s (%d pending)\n", "Webhook:", st.URL, st.Pending)
	if st.LastErrorMsg != "" {
		fmt.Fprintf(w, "    %-12s %s\n", "Last error:", st.LastErrorMsg)
	}
}

func checkPostgres(ctx context.Context, w io.Writer, dsn string) {
	db, err := pg.OpenDB(dsn)
	if err != nil {
		fmt.Fprintf(w, "    %-12s CONNECT FAILED (%s)\n", "Postgres:", err)
		return
	}
	defer db.Close()

	s, err := pg.CheckSchema(ctx, db)
	if err != nil {
		fmt.Fprintf(w, "    %-12s CHECK FAILED (%s)\n", "Schema:", err)
		return
	}
	fmt.Fprintf(w, "    %-12s %s\n", "Schema:", s)
}

func checkSecret(w io.Writer, name, secret string) {
	fmt.Fprintf(w, "    %-12s %s\n", name+":", maskSecret(secret))
}

func maskSecret(s string) string {
	if s == "" {
		return "(not configured)"
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
