package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	// DefaultTranscriptionModel is the large general-purpose speech model.
	DefaultTranscriptionModel = "whisper-large-v3"

	// transcriptionEndpoint is the path appended to the API base.
	transcriptionEndpoint = "/audio/transcriptions"

	// defaultTranscriptionTimeout bounds a single upload + transcription.
	defaultTranscriptionTimeout = 60 * time.Second
)

// transcriptionResponse is the JSON body returned by the transcription API.
// Text is a pointer so a missing field and an empty one both read as "".
type transcriptionResponse struct {
	Text *string `json:"text"`
}

// AudioTranscriber calls an OpenAI-compatible /audio/transcriptions endpoint.
type AudioTranscriber struct {
	apiKey      string
	apiBase     string
	model       string
	contentType string
	client      *http.Client
}

// NewAudioTranscriber creates a transcriber. Empty apiBase/model fall back to
// Groq and whisper-large-v3.
func NewAudioTranscriber(apiKey, apiBase, model string) *AudioTranscriber {
	if apiBase == "" {
		apiBase = DefaultGroqAPIBase
	}
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &AudioTranscriber{
		apiKey:      apiKey,
		apiBase:     strings.TrimRight(apiBase, "/"),
		model:       model,
		contentType: "audio/ogg",
		client:      &http.Client{Timeout: defaultTranscriptionTimeout},
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies).
func (t *AudioTranscriber) WithHTTPClient(c *http.Client) *AudioTranscriber {
	t.client = c
	return t
}

// Transcribe uploads audio as multipart/form-data and returns the transcript.
// A 200 response without a transcript returns ("", nil).
func (t *AudioTranscriber) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("stt: empty audio payload")
	}
	if fileName == "" {
		fileName = "voice.ogg"
	}

	// Fields:
	//   file            audio bytes, sent as audio/ogg
	//   model           transcription model id
	//   response_format always json
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", t.contentType)
	fw, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("stt: create form file field: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("stt: write audio bytes to form: %w", err)
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("stt: write model field: %w", err)
	}
	if err := w.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("stt: write response_format field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("stt: close multipart writer: %w", err)
	}

	url := t.apiBase + transcriptionEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("stt: build request to %q: %w", url, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	slog.Debug("stt: calling transcription API", "url", url, "bytes", len(audio), "model", t.model)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: request to %q failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("stt: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Status: resp.StatusCode, Body: "stt: " + string(respBody)}
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("stt: parse response JSON: %w", err)
	}
	if result.Text == nil {
		return "", nil
	}

	slog.Debug("stt: transcript received", "length", len(*result.Text))
	return *result.Text, nil
}
