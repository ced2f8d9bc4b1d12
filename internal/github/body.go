package github

import (
	"strings"

	"github.com/nextlevelbuilder/feedbackrelay/internal/feedback"
)

const (
	defaultCriterion      = "Complete implementation"
	defaultTechnicalNotes = "No specific technical notes provided"
	defaultTags           = "general"
	issueFooter           = "*Created automatically from Telegram feedback by the feedback relay.*"
)

// BuildIssueBody renders the Markdown body for rec. Output depends only on rec.
func BuildIssueBody(rec feedback.Record) string {
	var b strings.Builder

	b.WriteString("## 📋 Issue Details\n\n")
	b.WriteString("- **Type:** " + string(rec.Type) + "\n")
	b.WriteString("- **Priority:** " + string(rec.Priority) + "\n")
	b.WriteString("- **Urgency:** " + string(rec.Urgency) + "\n")
	b.WriteString("- **Size:** " + string(rec.Size) + "\n")
	b.WriteString("- **Scope:** " + string(rec.Scope) + "\n")
	b.WriteString("- **Component:** " + rec.Component + "\n")
	b.WriteString("- **Estimated Hours:** " + string(rec.EstimatedHours) + "\n")

	b.WriteString("\n## 📝 Description\n\n")
	b.WriteString(rec.Description + "\n")

	b.WriteString("\n## ✅ Acceptance Criteria\n\n")
	criteria := []string(rec.AcceptanceCriteria)
	if len(criteria) == 0 {
		criteria = []string{defaultCriterion}
	}
	for _, c := range criteria {
		b.WriteString("- [ ] " + c + "\n")
	}

	b.WriteString("\n## 🔧 Technical Notes\n\n")
	notes := rec.TechnicalNotes
	if strings.TrimSpace(notes) == "" {
		notes = defaultTechnicalNotes
	}
	b.WriteString(notes + "\n")

	b.WriteString("\n## 🏷️ Tags\n\n")
	tags := strings.Join(rec.Tags, ", ")
	if len(rec.Tags) == 0 {
		tags = defaultTags
	}
	b.WriteString(tags + "\n")

	b.WriteString("\n---\n")
	b.WriteString(issueFooter + "\n")

	return b.String()
}
