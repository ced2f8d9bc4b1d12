package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/feedbackrelay/internal/channels"
	"github.com/nextlevelbuilder/feedbackrelay/internal/classifier"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
	"github.com/nextlevelbuilder/feedbackrelay/internal/store"
	"github.com/nextlevelbuilder/feedbackrelay/internal/triage"
)

const (
	ownerChat int64 = 6236482920
	errorChat int64 = 1111
)

type fakePipeline struct {
	mu    sync.Mutex
	calls int
	stage triage.Stage
	err   error
	panic string
	ctxOK bool
}

func (f *fakePipeline) Gate() triage.Gate { return triage.Gate{AuthorizedChatID: ownerChat} }

func (f *fakePipeline) Process(ctx context.Context, _ *telego.Update) (*triage.Run, error) {
	f.mu.Lock()
	f.calls++
	f.ctxOK = ctx.Err() == nil
	f.mu.Unlock()
	if f.panic != "" {
		panic(f.panic)
	}
	stage := f.stage
	if stage == "" {
		stage = triage.StageConfirmed
	}
	return &triage.Run{Stage: stage}, f.err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
	err  error
}

func (f *fakeNotifier) SendMarkdown(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[int64][]string)
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return f.err
}

func (f *fakeNotifier) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}

func textBody(updateID int, chatID int64, text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"update_id": updateID,
		"message": map[string]interface{}{
			"message_id": 1,
			"date":       0,
			"chat":       map[string]interface{}{"id": chatID, "type": "private"},
			"from":       map[string]interface{}{"id": chatID, "is_bot": false, "first_name": "Sam"},
			"text":       text,
		},
	})
	return string(b)
}

func post(t *testing.T, h *WebhookHandler, body string, header map[string]string) (int, webhookResponse) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp webhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func TestWebhook_Processed(t *testing.T) {
	p := &fakePipeline{}
	h := NewWebhookHandler(p, &fakeNotifier{}, WebhookOptions{})

	code, resp := post(t, h, textBody(1, ownerChat, "hello"), nil)
	if code != http.StatusOK || !resp.OK || !resp.Processed {
		t.Errorf("got %d %+v, want 200 {ok:true, processed:true}", code, resp)
	}
	if p.calls != 1 || !p.ctxOK {
		t.Errorf("pipeline calls = %d, ctxOK = %v", p.calls, p.ctxOK)
	}
}

func TestWebhook_AlwaysOK(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		pipeline   *fakePipeline
		wantCalls  int
		wantNotify map[int64]int
	}{
		{"unauthorized chat", textBody(1, 777, "hi"), &fakePipeline{}, 0, nil},
		{"no message", `{"update_id":5}`, &fakePipeline{}, 0, nil},
		{"malformed body", `{"update_id":`, &fakePipeline{}, 0, nil},
		{"empty body", ``, &fakePipeline{}, 0, nil},
		{"pipeline error", textBody(2, ownerChat, "hi"), &fakePipeline{err: errors.New("send confirmation: boom")}, 1, map[int64]int{ownerChat: 1}},
		{"pipeline panic", textBody(3, ownerChat, "hi"), &fakePipeline{panic: "nil map write"}, 1, map[int64]int{ownerChat: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &fakeNotifier{}
			h := NewWebhookHandler(tt.pipeline, n, WebhookOptions{ErrorChatID: errorChat})

			code, resp := post(t, h, tt.body, nil)
			if code != http.StatusOK || !resp.OK || resp.Processed {
				t.Errorf("got %d %+v, want 200 {ok:true}", code, resp)
			}
			if tt.pipeline.calls != tt.wantCalls {
				t.Errorf("pipeline calls = %d, want %d", tt.pipeline.calls, tt.wantCalls)
			}
			for chat, want := range tt.wantNotify {
				if got := len(n.sent[chat]); got != want {
					t.Errorf("notices to %d = %d, want %d", chat, got, want)
				}
				if n.sent[chat][0] != triage.ErrorReply {
					t.Errorf("notice = %q", n.sent[chat][0])
				}
			}
			if tt.wantNotify == nil && n.total() != 0 {
				t.Errorf("unexpected notices: %+v", n.sent)
			}
		})
	}
}

func TestWebhook_NotifierFailureStillOK(t *testing.T) {
	h := NewWebhookHandler(&fakePipeline{panic: "boom"}, &fakeNotifier{err: errors.New("telegram down")}, WebhookOptions{})
	if code, resp := post(t, h, textBody(1, ownerChat, "x"), nil); code != http.StatusOK || !resp.OK {
		t.Errorf("got %d %+v", code, resp)
	}
}

func TestWebhook_SecretToken(t *testing.T) {
	p := &fakePipeline{}
	h := NewWebhookHandler(p, &fakeNotifier{}, WebhookOptions{Secret: "s3cret"})

	code, resp := post(t, h, textBody(1, ownerChat, "x"), map[string]string{secretHeader: "wrong"})
	if code != http.StatusOK || !resp.OK || p.calls != 0 {
		t.Errorf("bad secret: got %d %+v, calls %d", code, resp, p.calls)
	}

	_, resp = post(t, h, textBody(2, ownerChat, "x"), map[string]string{secretHeader: "s3cret"})
	if !resp.Processed || p.calls != 1 {
		t.Errorf("good secret: got %+v, calls %d", resp, p.calls)
	}
}

func TestWebhook_DuplicateDelivery(t *testing.T) {
	p := &fakePipeline{}
	h := NewWebhookHandler(p, &fakeNotifier{}, WebhookOptions{Updates: store.NewMemoryUpdateStore()})

	body := textBody(42, ownerChat, "same update")
	if _, resp := post(t, h, body, nil); !resp.Processed {
		t.Fatalf("first delivery not processed: %+v", resp)
	}
	_, resp := post(t, h, body, nil)
	if resp.Processed || !resp.OK {
		t.Errorf("redelivery = %+v, want {ok:true}", resp)
	}
	if p.calls != 1 {
		t.Errorf("pipeline calls = %d, want 1", p.calls)
	}
}

type brokenLedger struct{ store.UpdateStore }

func (brokenLedger) MarkProcessed(context.Context, int64) (bool, error) {
	return false, errors.New("ledger offline")
}

func TestWebhook_LedgerFailureFailsOpen(t *testing.T) {
	p := &fakePipeline{}
	h := NewWebhookHandler(p, &fakeNotifier{}, WebhookOptions{Updates: brokenLedger{}})
	if _, resp := post(t, h, textBody(1, ownerChat, "x"), nil); !resp.Processed || p.calls != 1 {
		t.Errorf("got %+v, calls %d", resp, p.calls)
	}
}

func TestWebhook_RateLimited(t *testing.T) {
	p := &fakePipeline{}
	h := NewWebhookHandler(p, &fakeNotifier{}, WebhookOptions{Limiter: channels.NewChatRateLimiter(1, 2)})

	for i := 1; i <= 3; i++ {
		post(t, h, textBody(i, ownerChat, "x"), nil)
	}
	if p.calls != 2 {
		t.Errorf("pipeline calls = %d, want 2 (burst)", p.calls)
	}
}

// failingMessenger fails every outbound Telegram call.
type failingMessenger struct{ fakeNotifier }

func (f *failingMessenger) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	f.fakeNotifier.SendMarkdown(ctx, chatID, text)
	return errors.New("telegram unavailable")
}
func (f *failingMessenger) FilePath(context.Context, string) (string, error) {
	return "", errors.New("telegram unavailable")
}
func (f *failingMessenger) Download(context.Context, string) ([]byte, error) {
	return nil, errors.New("telegram unavailable")
}

type failingProvider struct{}

func (failingProvider) Chat(context.Context, providers.ChatRequest) (*providers.ChatResponse, error) {
	return nil, errors.New("groq unavailable")
}
func (failingProvider) DefaultModel() string { return "m" }
func (failingProvider) Name() string         { return "failing" }

type failingIssues struct{}

func (failingIssues) CreateIssue(context.Context, github.IssueRequest) (*github.Issue, error) {
	return nil, &github.APIError{Status: 500}
}

func TestWebhook_EveryDependencyFails(t *testing.T) {
	m := &failingMessenger{}
	p := triage.New(triage.Deps{
		AuthorizedChatID: ownerChat,
		Messenger:        m,
		Classifier:       classifier.New(failingProvider{}, ""),
		Issues:           failingIssues{},
	})
	h := NewWebhookHandler(p, m, WebhookOptions{ErrorChatID: errorChat})

	voice := `{"update_id":9,"message":{"message_id":1,"date":0,"chat":{"id":6236482920,"type":"private"},"voice":{"file_id":"v","file_unique_id":"u","duration":1}}}`
	for _, body := range []string{textBody(8, ownerChat, "x"), voice} {
		code, resp := post(t, h, body, nil)
		if code != http.StatusOK || !resp.OK || resp.Processed {
			t.Errorf("got %d %+v, want 200 {ok:true}", code, resp)
		}
	}
	// The last attempt for each update is the generic failure notice.
	if msgs := m.sent[ownerChat]; len(msgs) == 0 || msgs[len(msgs)-1] != triage.ErrorReply {
		t.Errorf("expected a failure notice, got %v", msgs)
	}
}

func TestServer_RootAndHealth(t *testing.T) {
	s := NewServer("127.0.0.1:0", ownerChat, nil)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.started = start
	s.now = func() time.Time { return start.Add(90 * time.Second) }
	mux := s.BuildMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	var root rootResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatal(err)
	}
	if root.ChatID != ownerChat || root.Uptime != 90 || root.Timestamp != "2026-01-02T03:05:35Z" || root.Status == "" || root.Message == "" {
		t.Errorf("root = %+v", root)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || health.Status != "healthy" {
		t.Errorf("health = %d %+v", rec.Code, health)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d", rec.Code)
	}
}

func TestWebhook_UnauthorizedChatLoggedAtInfo(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	p := &fakePipeline{}
	n := &fakeNotifier{}
	h := NewWebhookHandler(p, n, WebhookOptions{})

	code, resp := post(t, h, textBody(9, 4242, "let me in"), nil)
	if code != http.StatusOK || !resp.OK || resp.Processed {
		t.Errorf("got %d %+v, want 200 {ok:true}", code, resp)
	}
	if p.calls != 0 || n.total() != 0 {
		t.Errorf("rejected update reached pipeline (%d) or notifier (%d)", p.calls, n.total())
	}
	out := logs.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "webhook.unauthorized_chat") || !strings.Contains(out, "chat_id=4242") {
		t.Errorf("expected an info log for the unauthorized chat, got:\n%s", out)
	}
}
