package triage

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
)

const confirmationFooter = "_Processed by AI Assistant_"

// ErrorReply is the generic notice sent when a run fails unexpectedly.
const ErrorReply = "❌ Sorry, something went wrong processing your message. Please try again."

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown makes s literal under Telegram's legacy Markdown parse mode.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func typeEmoji(t feedback.Type) string {
	switch t {
	case feedback.TypeBug:
		return "🐛"
	case feedback.TypeFeature:
		return "✨"
	case feedback.TypeEnhancement:
		return "🚀"
	case feedback.TypeDocumentation:
		return "📚"
	case feedback.TypeTask:
		return "📋"
	default:
		return "📌"
	}
}

func priorityEmoji(p feedback.Priority) string {
	switch p {
	case feedback.PriorityASAP:
		return "🔴"
	case feedback.PriorityHigh:
		return "🟠"
	case feedback.PriorityMedium:
		return "🟡"
	case feedback.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// FormatConfirmation renders the final Markdown reply for a dispatched record.
func FormatConfirmation(rec feedback.Record, res feedback.ActionResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s*\n\n", typeEmoji(rec.Type), escapeMarkdown(rec.Title))

	fmt.Fprintf(&b, "%s *Analysis:*\n", priorityEmoji(rec.Priority))
	fmt.Fprintf(&b, "• Type: %s\n", escapeMarkdown(string(rec.Type)))
	fmt.Fprintf(&b, "• Priority: %s\n", escapeMarkdown(string(rec.Priority)))
	fmt.Fprintf(&b, "• Size: %s\n", escapeMarkdown(string(rec.Size)))
	fmt.Fprintf(&b, "• Component: %s\n", escapeMarkdown(rec.Component))
	fmt.Fprintf(&b, "• Estimated: %s hours\n\n", escapeMarkdown(string(rec.EstimatedHours)))

	fmt.Fprintf(&b, "📝 *Description:*\n%s\n\n", escapeMarkdown(rec.Description))

	switch {
	case !res.Success:
		fmt.Fprintf(&b, "❌ *Action Failed:* %s\n\n", escapeMarkdown(res.Error))
	case rec.Action.Resolve() == feedback.ActionGitHub:
		fmt.Fprintf(&b, "✅ *GitHub Issue Created:* [#%d](%s)\n\n", res.IssueNumber, res.URL)
	default:
		fmt.Fprintf(&b, "✅ *Action:* %s\n\n", escapeMarkdown(res.Action))
	}

	b.WriteString(confirmationFooter)
	return b.String()
}
