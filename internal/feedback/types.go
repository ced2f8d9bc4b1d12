package feedback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type is the kind of work a piece of feedback describes.
type Type string

const (
	TypeBug           Type = "bug"
	TypeFeature       Type = "feature"
	TypeEnhancement   Type = "enhancement"
	TypeDocumentation Type = "documentation"
	TypeTask          Type = "task"
)

// Priority is how soon the work should be scheduled.
type Priority string

const (
	PriorityASAP   Priority = "ASAP"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Urgency is the user-facing impact of the problem.
type Urgency string

const (
	UrgencyCritical Urgency = "Critical"
	UrgencyHigh     Urgency = "High"
	UrgencyNormal   Urgency = "Normal"
	UrgencyLow      Urgency = "Low"
)

// Size is the rough effort bucket.
type Size string

const (
	SizeSmall  Size = "Small"
	SizeMedium Size = "Medium"
	SizeLarge  Size = "Large"
	SizeXL     Size = "XL"
)

// Scope is the part of the stack the work touches.
type Scope string

const (
	ScopeFrontend      Scope = "Frontend"
	ScopeBackend       Scope = "Backend"
	ScopeFullStack     Scope = "Full-stack"
	ScopeDesign        Scope = "Design"
	ScopeDevOps        Scope = "DevOps"
	ScopeDocumentation Scope = "Documentation"
)

// Action selects the downstream handler for a record.
type Action string

const (
	ActionGitHub Action = "github"
	ActionClaude Action = "claude"
	ActionTodo   Action = "todo"
)

// Known reports whether a is one of the three dispatch targets.
func (a Action) Known() bool {
	switch a {
	case ActionGitHub, ActionClaude, ActionTodo:
		return true
	}
	return false
}

// Resolve returns the dispatch target for a. Anything unrecognized
// (including the empty string) routes to the todo list.
func (a Action) Resolve() Action {
	if a.Known() {
		return a
	}
	return ActionTodo
}

// Estimated hour buckets offered to the classifier.
const (
	Hours1to2   = "1-2"
	Hours4to8   = "4-8"
	Hours16to32 = "16-32"
	Hours40Plus = "40+"
)

// FlexibleString accepts both "str" and 123 in JSON.
// Models sometimes answer estimatedHours with a bare number.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexibleString(n.String())
	return nil
}

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, strconv.FormatFloat(val, 'f', -1, 64))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Record is the structured classification of one inbound message.
// It drives routing in the dispatcher and is never persisted.
type Record struct {
	Type               Type                `json:"type"`
	Priority           Priority            `json:"priority"`
	Urgency            Urgency             `json:"urgency"`
	Size               Size                `json:"size"`
	Scope              Scope               `json:"scope"`
	Component          string              `json:"component"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Action             Action              `json:"action"`
	EstimatedHours     FlexibleString      `json:"estimatedHours"`
	Tags               FlexibleStringSlice `json:"tags"`
	AcceptanceCriteria FlexibleStringSlice `json:"acceptance_criteria"`
	TechnicalNotes     string              `json:"technical_notes"`
}

// defaultTitleRunes is how much of the input text becomes the fallback title.
const defaultTitleRunes = 50

// DefaultRecord is the record substituted whenever classification fails.
func DefaultRecord(text string) Record {
	return Record{
		Type:               TypeTask,
		Priority:           PriorityMedium,
		Urgency:            UrgencyNormal,
		Size:               SizeMedium,
		Scope:              ScopeFrontend,
		Component:          "general",
		Title:              TruncateRunes(text, defaultTitleRunes),
		Description:        text,
		Action:             ActionTodo,
		EstimatedHours:     Hours4to8,
		Tags:               FlexibleStringSlice{"general"},
		AcceptanceCriteria: FlexibleStringSlice{"Process request"},
		TechnicalNotes:     "Standard task processing",
	}
}

// FillMissing replaces every empty field with its DefaultRecord(text) value,
// so a partial model reply still yields a complete record.
func (r *Record) FillMissing(text string) {
	def := DefaultRecord(text)
	if r.Type == "" {
		r.Type = def.Type
	}
	if r.Priority == "" {
		r.Priority = def.Priority
	}
	if r.Urgency == "" {
		r.Urgency = def.Urgency
	}
	if r.Size == "" {
		r.Size = def.Size
	}
	if r.Scope == "" {
		r.Scope = def.Scope
	}
	if strings.TrimSpace(r.Component) == "" {
		r.Component = def.Component
	}
	if strings.TrimSpace(r.Title) == "" {
		r.Title = def.Title
	}
	if strings.TrimSpace(r.Description) == "" {
		r.Description = def.Description
	}
	if r.Action == "" {
		r.Action = def.Action
	}
	if strings.TrimSpace(string(r.EstimatedHours)) == "" {
		r.EstimatedHours = def.EstimatedHours
	}
	if len(r.Tags) == 0 {
		r.Tags = def.Tags
	}
	if len(r.AcceptanceCriteria) == 0 {
		r.AcceptanceCriteria = def.AcceptanceCriteria
	}
	if r.TechnicalNotes == "" {
		r.TechnicalNotes = def.TechnicalNotes
	}
}

// ActionResult is the outcome of dispatching a record.
type ActionResult struct {
	Success     bool   `json:"success"`
	IssueNumber int    `json:"issue_number,omitempty"`
	URL         string `json:"url,omitempty"`
	Action      string `json:"action,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed builds an unsuccessful result carrying err's message.
func Failed(err error) ActionResult {
	return ActionResult{Success: false, Error: err.Error()}
}

// TruncateRunes returns the first n runes of s, without an ellipsis.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Preview shortens s to n runes and appends "..." when something was cut.
func Preview(s string, n int) string {
	t := TruncateRunes(s, n)
	if len(t) < len(s) {
		return t + "..."
	}
	return t
}

// Labels returns the GitHub labels for the record.
func (r Record) Labels() []string {
	labels := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" {
			labels = append(labels, t)
		}
	}
	if len(labels) == 0 {
		return []string{"telegram-assistant"}
	}
	return labels
}
