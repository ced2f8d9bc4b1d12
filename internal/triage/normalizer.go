package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/feedbackrelay/internal/channels/telegram"
	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/providers"
)

const (
	previewRunes = 100

	// voiceFileName is the multipart file name; Telegram voice notes are OGG/Opus.
	voiceFileName = "voice.ogg"

	noSpeechText = "No speech detected"
)

// Source is the kind of content an update carried.
type Source string

const (
	SourceText  Source = "text"
	SourceVoice Source = "voice"
)

// TranscriptionError is returned when a voice note cannot be turned into text.
// Msg is the user-facing reason; Err keeps the underlying cause for logs.
type TranscriptionError struct {
	Msg string
	Err error
}

func (e *TranscriptionError) Error() string { return e.Msg }
func (e *TranscriptionError) Unwrap() error { return e.Err }

var errNoTranscriber = errors.New("speech-to-text is not configured")

// Normalized is the plain-text form of an update.
type Normalized struct {
	Text   string
	Source Source
	Err    error // transcription failure folded into Text, nil otherwise
}

// Normalizer reduces text and voice messages to plain text.
type Normalizer struct {
	messenger Messenger
	stt       providers.Transcriber
}

func NewNormalizer(m Messenger, stt providers.Transcriber) *Normalizer {
	return &Normalizer{messenger: m, stt: stt}
}

// Normalize never fails: a transcription error becomes
// "[Transcription failed: <reason>]" and flows on as the message text.
func (n *Normalizer) Normalize(ctx context.Context, msg *telego.Message) Normalized {
	chatID := msg.Chat.ID

	if msg.Text != "" {
		sendProgress(ctx, n.messenger, chatID, textAck(telegram.FirstName(msg), msg.Text))
		return Normalized{Text: msg.Text, Source: SourceText}
	}

	sendProgress(ctx, n.messenger, chatID, "🎤 Transcribing voice message...")

	transcript, err := n.transcribe(ctx, telegram.VoiceFileID(msg))
	if err != nil {
		slog.Warn("triage.transcription_failed", "chat_id", chatID, "error", err, "cause", errors.Unwrap(err))
		return Normalized{
			Text:   fmt.Sprintf("[Transcription failed: %s]", err.Error()),
			Source: SourceVoice,
			Err:    err,
		}
	}

	sendProgress(ctx, n.messenger, chatID, fmt.Sprintf("📝 Transcribed: \"%s\"", escapeMarkdown(feedback.Preview(transcript, previewRunes))))
	return Normalized{Text: transcript, Source: SourceVoice}
}

// transcribe resolves, downloads and transcribes one voice attachment.
// Every failure is a *TranscriptionError.
func (n *Normalizer) transcribe(ctx context.Context, fileID string) (string, error) {
	path, err := n.messenger.FilePath(ctx, fileID)
	if err != nil {
		return "", &TranscriptionError{Msg: "Failed to get file info", Err: err}
	}

	audio, err := n.messenger.Download(ctx, path)
	if err != nil {
		return "", &TranscriptionError{Msg: "Failed to download voice file", Err: err}
	}

	if n.stt == nil {
		return "", &TranscriptionError{Msg: "Speech-to-text unavailable", Err: errNoTranscriber}
	}
	text, err := n.stt.Transcribe(ctx, audio, voiceFileName)
	if err != nil {
		var httpErr *providers.HTTPError
		if errors.As(err, &httpErr) {
			return "", &TranscriptionError{Msg: fmt.Sprintf("Speech-to-text API error: %d", httpErr.Status), Err: err}
		}
		return "", &TranscriptionError{Msg: "Speech-to-text request failed", Err: err}
	}
	if text == "" {
		return noSpeechText, nil
	}
	return text, nil
}

func textAck(firstName, text string) string {
	greeting := "👋 Hi!"
	if firstName != "" {
		greeting = fmt.Sprintf("👋 Hi %s!", escapeMarkdown(firstName))
	}
	return fmt.Sprintf("%s Got your message:\n\n\"%s\"", greeting, escapeMarkdown(feedback.Preview(text, previewRunes)))
}
