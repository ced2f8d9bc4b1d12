package feedback

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTryParse_PlainObject(t *testing.T) {
	reply := `{"type":"bug","priority":"High","urgency":"Critical","size":"Small","scope":"Frontend",
"component":"auth","title":"Login button broken on mobile","description":"Tapping login does nothing",
"action":"github","estimatedHours":"1-2","tags":["bug","mobile"],
"acceptance_criteria":["Login works on iOS","Login works on Android"],"technical_notes":"Check touch handlers"}`

	got, ok := TryParse(reply)
	if !ok {
		t.Fatal("expected reply to parse")
	}
	want := &Record{
		Type:               TypeBug,
		Priority:           PriorityHigh,
		Urgency:            UrgencyCritical,
		Size:               SizeSmall,
		Scope:              ScopeFrontend,
		Component:          "auth",
		Title:              "Login button broken on mobile",
		Description:        "Tapping login does nothing",
		Action:             ActionGitHub,
		EstimatedHours:     Hours1to2,
		Tags:               FlexibleStringSlice{"bug", "mobile"},
		AcceptanceCriteria: FlexibleStringSlice{"Login works on iOS", "Login works on Android"},
		TechnicalNotes:     "Check touch handlers",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TryParse() mismatch (-want +got):\n%s", diff)
	}
}

// TestTryParse_EmbeddedInProse verifies that surrounding prose is ignored.
func TestTryParse_EmbeddedInProse(t *testing.T) {
	reply := "Sure! Here's the JSON: {\"type\":\"bug\",\"title\":\"Broken chart\",\"action\":\"claude\"} Let me know if you need more."
	got, ok := TryParse(reply)
	if !ok {
		t.Fatal("expected embedded object to parse")
	}
	if got.Type != TypeBug || got.Title != "Broken chart" || got.Action != ActionClaude {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestTryParse_CodeFence(t *testing.T) {
	reply := "```json\n{\"type\":\"feature\",\"title\":\"Export CSV\"}\n```"
	got, ok := TryParse(reply)
	if !ok {
		t.Fatal("expected fenced object to parse")
	}
	if got.Type != TypeFeature {
		t.Errorf("Type = %q, want feature", got.Type)
	}
}

func TestTryParse_Failures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty", ""},
		{"prose only", "I could not classify this message."},
		{"null literal", "null"},
		{"array", `["bug"]`},
		{"broken object", `{"type": "bug", "title": }`},
		{"two objects", `{"type":"bug"} and {"type":"task"}`},
		{"unclosed", `{"type":"bug"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec, ok := TryParse(tt.reply); ok {
				t.Errorf("TryParse(%q) = %+v, want failure", tt.reply, rec)
			}
		})
	}
}

func TestTryParse_NumericFields(t *testing.T) {
	got, ok := TryParse(`{"estimatedHours": 8, "tags": ["ui", 2]}`)
	if !ok {
		t.Fatal("expected numeric fields to be accepted")
	}
	if got.EstimatedHours != "8" {
		t.Errorf("EstimatedHours = %q, want %q", got.EstimatedHours, "8")
	}
	if diff := cmp.Diff(FlexibleStringSlice{"ui", "2"}, got.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRecord(t *testing.T) {
	text := strings.Repeat("x", 45) + "ünicode tail that goes past fifty runes"
	got := DefaultRecord(text)

	want := Record{
		Type:               TypeTask,
		Priority:           PriorityMedium,
		Urgency:            UrgencyNormal,
		Size:               SizeMedium,
		Scope:              ScopeFrontend,
		Component:          "general",
		Title:              strings.Repeat("x", 45) + "ünico",
		Description:        text,
		Action:             ActionTodo,
		EstimatedHours:     "4-8",
		Tags:               FlexibleStringSlice{"general"},
		AcceptanceCriteria: FlexibleStringSlice{"Process request"},
		TechnicalNotes:     "Standard task processing",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DefaultRecord() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRecord_ShortText(t *testing.T) {
	got := DefaultRecord("hi")
	if got.Title != "hi" || got.Description != "hi" {
		t.Errorf("short text should be kept whole, got title=%q description=%q", got.Title, got.Description)
	}
}

func TestActionResolve(t *testing.T) {
	tests := []struct {
		in   Action
		want Action
	}{
		{ActionGitHub, ActionGitHub},
		{ActionClaude, ActionClaude},
		{ActionTodo, ActionTodo},
		{"", ActionTodo},
		{"GitHub", ActionTodo},
		{"jira", ActionTodo},
	}
	for _, tt := range tests {
		if got := tt.in.Resolve(); got != tt.want {
			t.Errorf("Action(%q).Resolve() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 100); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	long := strings.Repeat("a", 120)
	if got := Preview(long, 100); got != strings.Repeat("a", 100)+"..." {
		t.Errorf("Preview(long) = %q", got)
	}
}

func TestLabels(t *testing.T) {
	if diff := cmp.Diff([]string{"telegram-assistant"}, Record{}.Labels()); diff != "" {
		t.Errorf("empty tags mismatch (-want +got):\n%s", diff)
	}
	r := Record{Tags: FlexibleStringSlice{"bug", " ", "auth"}}
	if diff := cmp.Diff([]string{"bug", "auth"}, r.Labels()); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestFillMissing(t *testing.T) {
	text := "Export button on the reports page does nothing"
	t.Run("empty object", func(t *testing.T) {
		rec, ok := TryParse("{}")
		if !ok {
			t.Fatal("expected {} to decode")
		}
		rec.FillMissing(text)
		if diff := cmp.Diff(DefaultRecord(text), *rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("partial object keeps model fields", func(t *testing.T) {
		rec, _ := TryParse(`{"type":"bug","action":"github","title":"  ","tags":["reports"]}`)
		rec.FillMissing(text)

		want := DefaultRecord(text)
		want.Type = TypeBug
		want.Action = ActionGitHub
		want.Tags = FlexibleStringSlice{"reports"}
		if diff := cmp.Diff(want, *rec); diff != "" {
			t.Errorf("record mismatch (-want +got):\n%s", diff)
		}
	})
}
