package bus

import (
	"context"
	"time"
)

// Event names.
const (
	EventTriageCompleted = "triage.completed"
	EventTriageFailed    = "triage.failed"
)

// TriageEvent summarizes one pipeline run for downstream consumers
// (analytics, the web dashboard's feedback feed).
type TriageEvent struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"` // EventTriage* constants
	RunID      string    `json:"run_id"`
	UpdateID   int64     `json:"update_id"`
	ChatID     int64     `json:"chat_id"`
	Source     string    `json:"source"` // "text" or "voice"
	Stage      string    `json:"stage"`  // terminal pipeline stage
	Type       string    `json:"type,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	Action     string    `json:"action,omitempty"`
	Title      string    `json:"title,omitempty"`
	Fallback   bool      `json:"fallback,omitempty"` // classifier used the default record
	Success    bool      `json:"success"`
	IssueURL   string    `json:"issue_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers triage events. Publishing is best-effort: the
// pipeline logs failures and never fails a run because of them.
type EventPublisher interface {
	Publish(ctx context.Context, event TriageEvent) error
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TriageEvent) error { return nil }
func (NopPublisher) Close() error                               { return nil }
