package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
)

func onboardCmd() *cobra.Command {
	var skipVerify bool
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard that writes the relay config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(skipVerify)
		},
	}
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "skip the Groq API key check")
	return cmd
}

func runOnboard(skipVerify bool) error {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	chatID := strconv.FormatInt(cfg.AuthorizedChatID, 10)
	backend := cfg.Ledger.Backend
	var save bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Leave empty to keep using TELEGRAM_TOKEN.").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Telegram.Token),
			huh.NewInput().
				Title("Authorized chat ID").
				Description("Only messages from this chat are processed.").
				Value(&chatID).
				Validate(validateChatID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Groq API key").
				Description("Used for classification and voice transcription.").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Groq.APIKey),
			huh.NewInput().
				Title("GitHub token").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.GitHub.Token),
			huh.NewInput().
				Title("GitHub repository").
				Description("owner/name").
				Value(&cfg.GitHub.Repo).
				Validate(validateRepo),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Update ledger").
				Options(
					huh.NewOption("In memory (lost on restart)", config.LedgerMemory),
					huh.NewOption("SQLite file", config.LedgerSQLite),
					huh.NewOption("Postgres (RELAY_POSTGRES_DSN)", config.LedgerPostgres),
				).
				Value(&backend),
			huh.NewConfirm().
				Title(fmt.Sprintf("Write %s?", path)).
				Affirmative("Save").
				Negative("Cancel").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("onboard: %w", err)
	}
	if !save {
		fmt.Println("Aborted, nothing written.")
		return nil
	}

	id, _ := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	cfg.AuthorizedChatID = id
	cfg.Ledger.Backend = backend

	if !skipVerify && cfg.Groq.APIKey != "" {
		fmt.Println("  Verifying Groq API key...")
		if verr := verifyGroq(cfg); verr != nil {
			if verr.fatal {
				return verr
			}
			fmt.Printf("    WARNING: %s\n", verr.message)
		} else {
			fmt.Println("    groq: OK")
		}
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("Config written to %s (secrets are not stored; export TELEGRAM_TOKEN, GROQ_API_KEY and GITHUB_TOKEN).\n", path)
	return nil
}

func validateChatID(s string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("must be a non-zero integer")
	}
	return nil
}

func validateRepo(s string) error {
	owner, name, ok := strings.Cut(s, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("must look like owner/name")
	}
	return nil
}
