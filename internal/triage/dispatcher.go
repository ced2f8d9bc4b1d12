package triage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
	"github.com/nextlevelbuilder/feedbackrelay/internal/github"
)

// Stub results for the two handlers that have no external integration yet.
const (
	claudeQueueResult = "Saved to Claude Code integration queue"
	todoResult        = "Added to internal todo system"
)

var errNoIssueTracker = errors.New("GitHub integration is not configured")

// ClaudeQueue hands records to the code-assistant queue. The queue is not
// wired to a backend; every record is accepted.
type ClaudeQueue struct{}

func (ClaudeQueue) Enqueue(_ context.Context, rec feedback.Record) feedback.ActionResult {
	slog.Info("triage.claude_queued", "title", rec.Title)
	return feedback.ActionResult{Success: true, Action: claudeQueueResult}
}

// TodoList records tasks on the internal todo list. Like ClaudeQueue it
// accepts every record without an external call.
type TodoList struct{}

func (TodoList) Enqueue(_ context.Context, rec feedback.Record) feedback.ActionResult {
	slog.Info("triage.todo_added", "title", rec.Title)
	return feedback.ActionResult{Success: true, Action: todoResult}
}

// Dispatcher routes a record to exactly one action.
type Dispatcher struct {
	messenger Messenger
	issues    IssueCreator
	claude    TaskSink
	todo      TaskSink
}

// NewDispatcher creates a dispatcher. A nil issues routes github records
// to a failed result instead of a request.
func NewDispatcher(m Messenger, issues IssueCreator) *Dispatcher {
	return &Dispatcher{
		messenger: m,
		issues:    issues,
		claude:    ClaudeQueue{},
		todo:      TodoList{},
	}
}

// Dispatch runs the action selected by rec.Action. Failures are reported in
// the result, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, rec feedback.Record) feedback.ActionResult {
	switch action := rec.Action.Resolve(); action {
	case feedback.ActionGitHub:
		sendProgress(ctx, d.messenger, chatID, "📤 Creating GitHub issue...")
		return d.createIssue(ctx, rec)
	case feedback.ActionClaude:
		sendProgress(ctx, d.messenger, chatID, "🤖 Sending to Claude Code queue...")
		return d.claude.Enqueue(ctx, rec)
	case feedback.ActionTodo:
		sendProgress(ctx, d.messenger, chatID, "📝 Adding to todo list...")
		return d.todo.Enqueue(ctx, rec)
	default:
		panic("triage: unhandled action " + string(action))
	}
}

func (d *Dispatcher) createIssue(ctx context.Context, rec feedback.Record) feedback.ActionResult {
	if d.issues == nil {
		return feedback.Failed(errNoIssueTracker)
	}
	issue, err := d.issues.CreateIssue(ctx, github.IssueRequest{
		Title:  rec.Title,
		Body:   github.BuildIssueBody(rec),
		Labels: rec.Labels(),
	})
	if err != nil {
		slog.Warn("triage.create_issue_failed", "error", err)
		return feedback.Failed(err)
	}
	return feedback.ActionResult{Success: true, IssueNumber: issue.Number, URL: issue.HTMLURL}
}
