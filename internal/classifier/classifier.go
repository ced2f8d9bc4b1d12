package classifier

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 1000
)

// Classifier turns normalized text into a feedback.Record with one LLM call.
type Classifier struct {
	provider providers.Provider
	model    string
}

// New creates a classifier. An empty model uses the provider default.
func New(p providers.Provider, model string) *Classifier {
	return &Classifier{provider: p, model: model}
}

// Outcome reports how a record was produced.
type Outcome struct {
	Record   feedback.Record
	Fallback bool  // true when DefaultRecord was substituted
	Err      error // cause of the fallback, nil when parsed
}

// Classify never fails: a transport error or an unparseable reply yields
// feedback.DefaultRecord(text).
func (c *Classifier) Classify(ctx context.Context, text string) feedback.Record {
	return c.ClassifyDetailed(ctx, text).Record
}

// ClassifyDetailed is Classify plus the reason a fallback was used.
func (c *Classifier) ClassifyDetailed(ctx context.Context, text string) Outcome {
	if c.provider == nil {
		return Outcome{Record: feedback.DefaultRecord(text), Fallback: true, Err: errNoProvider}
	}

	resp, err := c.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Model: c.model,
		Options: map[string]interface{}{
			providers.OptTemperature: defaultTemperature,
			providers.OptMaxTokens:   defaultMaxTokens,
		},
	})
	if err != nil {
		slog.Warn("classifier.request_failed", "provider", c.provider.Name(), "error", err)
		return Outcome{Record: feedback.DefaultRecord(text), Fallback: true, Err: err}
	}

	rec, ok := feedback.TryParse(resp.Content)
	if !ok {
		slog.Warn("classifier.unparseable_reply",
			"provider", c.provider.Name(),
			"preview", feedback.Preview(resp.Content, 120),
		)
		return Outcome{Record: feedback.DefaultRecord(text), Fallback: true, Err: errUnparseable}
	}

	rec.FillMissing(text)
	if !rec.Action.Known() {
		slog.Warn("classifier.unknown_action", "action", string(rec.Action))
	}
	return Outcome{Record: *rec}
}
