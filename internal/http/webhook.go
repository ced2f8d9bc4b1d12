package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/feedbackrelay/internal/channels"
	"github.com/nextlevelbuilder/feedbackrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store"
	"github.com/nextlevelbuilder/feedbackrelay/internal/triage"
)

const (
	secretHeader  = "X-Telegram-Bot-Api-Secret-Token"
	notifyTimeout = 10 * time.Second
)

// Pipeline is the triage entry point the webhook drives.
type Pipeline interface {
	Gate() triage.Gate
	Process(ctx context.Context, update *telego.Update) (*triage.Run, error)
}

// Notifier delivers the generic failure notice.
type Notifier interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

type webhookResponse struct {
	OK        bool `json:"ok"`
	Processed bool `json:"processed,omitempty"`
}

// WebhookHandler serves POST /webhook/telegram. It is the only place where
// pipeline errors and panics are flattened: Telegram always gets HTTP 200
// so it never redelivers.
type WebhookHandler struct {
	pipeline    Pipeline
	notifier    Notifier
	updates     store.UpdateStore         // nil disables duplicate detection
	limiter     *channels.ChatRateLimiter // nil disables rate limiting
	secret      string
	errorChatID int64
}

// WebhookOptions configures optional webhook behavior.
type WebhookOptions struct {
	Updates     store.UpdateStore
	Limiter     *channels.ChatRateLimiter
	Secret      string
	ErrorChatID int64
}

func NewWebhookHandler(p Pipeline, n Notifier, opts WebhookOptions) *WebhookHandler {
	return &WebhookHandler{
		pipeline:    p,
		notifier:    n,
		updates:     opts.Updates,
		limiter:     opts.Limiter,
		secret:      opts.Secret,
		errorChatID: opts.ErrorChatID,
	}
}

// RegisterRoutes registers the webhook route on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/telegram", h.handleTelegram)
}

func (h *WebhookHandler) handleTelegram(w http.ResponseWriter, r *http.Request) {
	var chatID int64
	resp := webhookResponse{OK: true}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("webhook.panic", "chat_id", chatID, "panic", fmt.Sprint(rec))
			h.notifyFailure(r.Context(), chatID)
			resp.Processed = false
		}
		writeJSON(w, http.StatusOK, resp)
	}()

	if h.secret != "" && r.Header.Get(secretHeader) != h.secret {
		slog.Warn("webhook.bad_secret", "remote", r.RemoteAddr)
		return
	}

	update, err := telegram.DecodeUpdate(r.Body)
	if err != nil {
		slog.Warn("webhook.decode_failed", "error", err)
		return
	}

	switch stage := h.pipeline.Gate().Check(update); stage {
	case triage.StageRejected:
		if update.Message != nil {
			slog.Info("webhook.unauthorized_chat", "update_id", update.UpdateID, "chat_id", update.Message.Chat.ID)
		} else {
			slog.Debug("webhook.skipped", "update_id", update.UpdateID, "stage", stage)
		}
		return
	case triage.StageIgnored:
		slog.Debug("webhook.skipped", "update_id", update.UpdateID, "stage", stage)
		return
	}
	chatID = update.Message.Chat.ID

	if h.updates != nil {
		fresh, err := h.updates.MarkProcessed(r.Context(), int64(update.UpdateID))
		switch {
		case err != nil:
			// Fail open: a ledger outage must not drop feedback.
			slog.Warn("webhook.ledger_failed", "update_id", update.UpdateID, "error", err)
		case !fresh:
			slog.Info("webhook.duplicate", "update_id", update.UpdateID, "chat_id", chatID)
			return
		}
	}

	if !h.limiter.Allow(chatID) {
		slog.Warn("webhook.rate_limited", "update_id", update.UpdateID, "chat_id", chatID)
		return
	}

	run, err := h.pipeline.Process(context.WithoutCancel(r.Context()), update)
	if err != nil {
		slog.Error("webhook.process_failed", "update_id", update.UpdateID, "chat_id", chatID, "error", err)
		h.notifyFailure(r.Context(), chatID)
		return
	}
	resp.Processed = run != nil && run.Stage == triage.StageConfirmed
}

// notifyFailure sends the generic error reply to chatID, or to the error
// chat when the origin is unknown. Best-effort.
func (h *WebhookHandler) notifyFailure(ctx context.Context, chatID int64) {
	if chatID == 0 {
		chatID = h.errorChatID
	}
	if chatID == 0 || h.notifier == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("webhook.notify_panic", "chat_id", chatID, "panic", fmt.Sprint(rec))
		}
	}()
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := h.notifier.SendMarkdown(nctx, chatID, triage.ErrorReply); err != nil {
		slog.Warn("webhook.notify_failed", "chat_id", chatID, "error", err)
	}
}
