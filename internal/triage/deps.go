// Package triage turns one authorized Telegram update into a classified,
// dispatched and confirmed piece of feedback.
package triage

import (
	"context"

	"github.com/nextlevelbuilder/feedbackrelay/internal/classifier"
	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
)

// Messenger is the outbound half of the chat channel.
type Messenger interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	FilePath(ctx context.Context, fileID string) (string, error)
	Download(ctx context.Context, filePath string) ([]byte, error)
}

// Classifier produces a record for normalized text and never fails.
type Classifier interface {
	ClassifyDetailed(ctx context.Context, text string) classifier.Outcome
}

// IssueCreator opens an issue in the configured repository.
type IssueCreator interface {
	CreateIssue(ctx context.Context, req github.IssueRequest) (*github.Issue, error)
}

// TaskSink accepts records routed away from the issue tracker.
type TaskSink interface {
	Enqueue(ctx context.Context, rec feedback.Record) feedback.ActionResult
}
