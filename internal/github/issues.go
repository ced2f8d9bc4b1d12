package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is the public GitHub REST root.
const DefaultAPIBase = "https://api.github.com"

// APIError is returned when the issue endpoint answers with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d", e.Status)
}

// IssueRequest is the payload for POST /repos/{owner}/{repo}/issues.
type IssueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// Issue is the subset of the created issue the relay reports back.
type Issue struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// Client creates issues in one fixed repository.
type Client struct {
	token   string
	repo    string // "owner/name"
	apiBase string
	client  *http.Client
}

// NewClient creates a client for repo ("owner/name").
func NewClient(token, repo, apiBase string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		token:   token,
		repo:    strings.Trim(repo, "/"),
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// Repo returns the configured "owner/name".
func (c *Client) Repo() string { return c.repo }

// CheckAccess fetches the repository to confirm the token can see it.
func (c *Client) CheckAccess(ctx context.Context) error {
	url := fmt.Sprintf("%s/repos/%s", c.apiBase, c.repo)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("github: create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("Accept", "application/vnd.github+json")
	r.Header.Set("User-Agent", "feedbackrelay")
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// CreateIssue opens an issue. One request, no retry.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("github: marshal issue: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/issues", c.apiBase, c.repo)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("github: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("github: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("github.create_issue_failed", "repo", c.repo, "status", resp.StatusCode)
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("github: decode issue: %w", err)
	}
	slog.Info("github.issue_created", "repo", c.repo, "number", issue.Number)
	return &issue, nil
}
