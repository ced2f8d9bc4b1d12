package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGroqAPIBase is the OpenAI-compatible endpoint root for Groq.
const DefaultGroqAPIBase = "https://api.groq.com/openai/v1"

// OpenAIProvider is a chat-completions client for OpenAI-compatible
// endpoints. The relay points it at Groq.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	chatPath     string // defaults to "/chat/completions"
	defaultModel string
	client       *http.Client
}

func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = DefaultGroqAPIBase
	}
	apiBase = strings.TrimRight(apiBase, "/")

	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      apiBase,
		chatPath:     "/chat/completions",
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies).
func (p *OpenAIProvider) WithHTTPClient(c *http.Client) *OpenAIProvider {
	p.client = c
	return p
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }
func (p *OpenAIProvider) APIBase() string      { return p.apiBase }

// Chat performs exactly one completion request. There is no retry loop:
// callers that need a fallback handle the error themselves.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	respBody, err := p.doRequest(ctx, p.buildRequestBody(model, req))
	if err != nil {
		return nil, err
	}
	defer respBody.Close()

	var oaiResp openAIResponse
	if err := json.NewDecoder(respBody).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}

	return p.parseResponse(&oaiResp), nil
}

type openAIRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	MaxTokens   interface{} `json:"max_tokens,omitempty"`
	Temperature interface{} `json:"temperature,omitempty"`
}

func (p *OpenAIProvider) buildRequestBody(model string, req ChatRequest) openAIRequest {
	return openAIRequest{
		Model:       model,
		Messages:    req.Messages,
		MaxTokens:   req.Options[OptMaxTokens],
		Temperature: req.Options[OptTemperature],
	}
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body openAIRequest) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+p.chatPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, &HTTPError{
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("%s: %s", p.name, string(respBody)),
		}
	}

	return resp.Body, nil
}

func (p *OpenAIProvider) parseResponse(resp *openAIResponse) *ChatResponse {
	result := &ChatResponse{FinishReason: "stop"}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		result.Content = choice.Message.Content
		if choice.FinishReason != "" {
			result.FinishReason = choice.FinishReason
		}
	}
	result.Usage = resp.Usage
	return result
}

type openAIResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}
