package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

// providerVerifyError holds the result of a provider connectivity check.
type providerVerifyError struct {
	fatal   bool   // true = bad credentials
	message string // human-readable description
}

func (e *providerVerifyError) Error() string { return e.message }

// verifyGroq sends a one-token chat request with the configured key.
//   - 401/403 HTTPError: invalid API key (fatal)
//   - any other error: warning
func verifyGroq(cfg *config.Config) *providerVerifyError {
	return verifyProvider(providers.NewOpenAIProvider("groq", cfg.Groq.APIKey, cfg.Groq.APIBase, cfg.Groq.Model))
}

func verifyProvider(prov providers.Provider) *providerVerifyError {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := prov.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: "hi"}},
		Options:  map[string]interface{}{providers.OptMaxTokens: 1},
	})
	if err == nil {
		return nil
	}

	var httpErr *providers.HTTPError
	if errors.As(err, &httpErr) && (httpErr.Status == 401 || httpErr.Status == 403) {
		return &providerVerifyError{
			fatal:   true,
			message: fmt.Sprintf("%s returned %d: invalid API key", prov.Name(), httpErr.Status),
		}
	}
	return &providerVerifyError{
		message: fmt.Sprintf("%s: %s", prov.Name(), friendlyProviderError(err)),
	}
}

// friendlyProviderError extracts a human-readable message from provider errors.
func friendlyProviderError(err error) string {
	msg := err.Error()

	// Try the "message" field of an embedded JSON error blob.
	if idx := strings.Index(msg, `"message"`); idx >= 0 {
		rest := msg[idx:]
		if start := strings.Index(rest, `:`); start >= 0 {
			rest = strings.TrimLeft(rest[start+1:], " ")
			if len(rest) > 0 && rest[0] == '"' {
				rest = rest[1:]
				if end := strings.Index(rest, `"`); end >= 0 && rest[:end] != "" {
					return rest[:end]
				}
			}
		}
	}

	if idx := strings.LastIndex(msg, ": "); idx >= 0 && idx < len(msg)-2 {
		suffix := msg[idx+2:]
		if strings.HasPrefix(suffix, "{") {
			return "request rejected by provider"
		}
		return suffix
	}
	return msg
}
