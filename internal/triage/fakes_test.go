package triage

import (
	"context"
	"errors"
	"sync"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

const authorizedChat int64 = 4242

type sentMessage struct {
	chatID int64
	text   string
}

// fakeMessenger records every outbound call.
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	fileCalls int
	fileErr   error
	audio     []byte
	dlErr     error
	sendErr   func(text string) error
}

func (f *fakeMessenger) SendMarkdown(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text})
	if f.sendErr != nil {
		return f.sendErr(text)
	}
	return nil
}

func (f *fakeMessenger) FilePath(_ context.Context, fileID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCalls++
	if f.fileErr != nil {
		return "", f.fileErr
	}
	return "voice/" + fileID + ".oga", nil
}

func (f *fakeMessenger) Download(context.Context, string) ([]byte, error) {
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	if f.audio == nil {
		return []byte("OggS"), nil
	}
	return f.audio, nil
}

func (f *fakeMessenger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent) + f.fileCalls
}

func (f *fakeMessenger) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].text
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
	name  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, fileName string) (string, error) {
	f.calls++
	f.name = fileName
	return f.text, f.err
}

type fakeProvider struct {
	reply string
	err   error
	reqs  []providers.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply}, nil
}

func (f *fakeProvider) DefaultModel() string { return "fake-model" }
func (f *fakeProvider) Name() string         { return "fake" }

func (f *fakeProvider) userMessages() []string {
	var out []string
	for _, r := range f.reqs {
		for _, m := range r.Messages {
			if m.Role == "user" {
				out = append(out, m.Content)
			}
		}
	}
	return out
}

type fakeIssues struct {
	reqs  []github.IssueRequest
	issue *github.Issue
	err   error
}

func (f *fakeIssues) CreateIssue(_ context.Context, req github.IssueRequest) (*github.Issue, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.issue != nil {
		return f.issue, nil
	}
	return &github.Issue{Number: 1, HTMLURL: "https://github.com/acme/portal/issues/1"}, nil
}

type countingSink struct {
	calls  int
	result feedback.ActionResult
}

func (c *countingSink) Enqueue(context.Context, feedback.Record) feedback.ActionResult {
	c.calls++
	return c.result
}

var errNetwork = errors.New("dial tcp: connection refused")

func textUpdate(chatID int64, text string) *telego.Update {
	return &telego.Update{
		UpdateID: 1,
		Message: &telego.Message{
			MessageID: 10,
			Chat:      telego.Chat{ID: chatID, Type: "private"},
			From:      &telego.User{ID: chatID, FirstName: "Sam"},
			Text:      text,
		},
	}
}

func voiceUpdate(chatID int64, fileID string) *telego.Update {
	return &telego.Update{
		UpdateID: 2,
		Message: &telego.Message{
			MessageID: 11,
			Chat:      telego.Chat{ID: chatID, Type: "private"},
			Voice:     &telego.Voice{FileID: fileID, FileUniqueID: "u-" + fileID, Duration: 3},
		},
	}
}
