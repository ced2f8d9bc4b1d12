package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/feedbackrelay/internal/config"
)

// testToken has the shape telego validates (digits ":" 35 chars).
const testToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw0"

func newTestChannel(t *testing.T, handler http.HandlerFunc) *Channel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(config.TelegramConfig{Token: testToken, APIServer: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSendMarkdown(t *testing.T) {
	var got map[string]interface{}
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot"+testToken+"/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	})

	if err := c.SendMarkdown(context.Background(), 42, "*hello*"); err != nil {
		t.Fatalf("SendMarkdown: %v", err)
	}
	if got["text"] != "*hello*" {
		t.Errorf("text = %v", got["text"])
	}
	if got["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %v", got["parse_mode"])
	}
	if id, _ := got["chat_id"].(float64); id != 42 {
		t.Errorf("chat_id = %v", got["chat_id"])
	}
}

func TestSendMarkdown_APIError(t *testing.T) {
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	if err := c.SendMarkdown(context.Background(), 1, "x"); err == nil {
		t.Fatal("expected error for ok=false response")
	}
}

func TestFilePathAndDownload(t *testing.T) {
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot" + testToken + "/getFile":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_size":4,"file_path":"voice/file_1.oga"}}`))
		case "/file/bot" + testToken + "/voice/file_1.oga":
			w.Write([]byte("OggS"))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	path, err := c.FilePath(context.Background(), "f1")
	if err != nil {
		t.Fatalf("FilePath: %v", err)
	}
	if path != "voice/file_1.oga" {
		t.Errorf("path = %q", path)
	}

	data, err := c.Download(context.Background(), path)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "OggS" {
		t.Errorf("data = %q", data)
	}
}

func TestFilePath_NotOK(t *testing.T) {
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`))
	})

	if _, err := c.FilePath(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for invalid file_id")
	}
}

func TestDownload_TooLarge(t *testing.T) {
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 16)))
	})
	c.maxBytes = 8

	if _, err := c.Download(context.Background(), "voice/big.oga"); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestDecodeUpdate(t *testing.T) {
	body := `{"update_id":7,"message":{"message_id":3,"date":0,"chat":{"id":42,"type":"private"},
"from":{"id":42,"is_bot":false,"first_name":"Sam"},"voice":{"file_id":"v1","file_unique_id":"u","duration":2}}}`

	update, err := DecodeUpdate(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeUpdate: %v", err)
	}
	if update.UpdateID != 7 {
		t.Errorf("UpdateID = %d", update.UpdateID)
	}
	if id, ok := ChatID(update); !ok || id != 42 {
		t.Errorf("ChatID = %d, %v", id, ok)
	}
	if got := VoiceFileID(update.Message); got != "v1" {
		t.Errorf("VoiceFileID = %q", got)
	}
	if got := FirstName(update.Message); got != "Sam" {
		t.Errorf("FirstName = %q", got)
	}
}

func TestDecodeUpdate_Invalid(t *testing.T) {
	if _, err := DecodeUpdate(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := ChatID(nil); ok {
		t.Error("ChatID(nil) should report false")
	}
}

func TestStatus(t *testing.T) {
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/bot" + testToken + "/getMe":
			w.Write([]byte(`{"ok":true,"result":{"id":123456789,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`))
		case "/bot" + testToken + "/getWebhookInfo":
			w.Write([]byte(`{"ok":true,"result":{"url":"https://relay.example.com/webhook/telegram","has_custom_certificate":false,"pending_update_count":3,"last_error_message":"Connection refused"}}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := WebhookStatus{
		BotUsername:  "relay_bot",
		URL:          "https://relay.example.com/webhook/telegram",
		Pending:      3,
		LastErrorMsg: "Connection refused",
	}
	if *st != want {
		t.Errorf("Status = %+v, want %+v", *st, want)
	}
}

func TestSendMarkdown_FallsBackToPlainText(t *testing.T) {
	var modes []interface{}
	c := newTestChannel(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		modes = append(modes, body["parse_mode"])
		w.Header().Set("Content-Type", "application/json")
		if body["parse_mode"] == "Markdown" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Can't find end of the entity starting at byte offset 8"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"}}}`))
	})

	if err := c.SendMarkdown(context.Background(), 42, "Fix user_profile crash"); err != nil {
		t.Fatalf("SendMarkdown: %v", err)
	}
	if len(modes) != 2 || modes[0] != "Markdown" || modes[1] != nil {
		t.Errorf("parse modes sent = %v, want [Markdown <nil>]", modes)
	}
}
