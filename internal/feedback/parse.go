package feedback

import (
	"encoding/json"
	"regexp"
	"strings"
)

// jsonObjectPattern spans from the first '{' to the last '}' in a reply.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// TryParse extracts a Record from free-form model output.
// Prose around the JSON object is ignored. When the reply contains no
// brace-delimited substring the whole trimmed reply is parsed instead.
// Returns false when nothing decodes to a JSON object.
func TryParse(reply string) (*Record, bool) {
	text := strings.TrimSpace(reply)

	candidate := text
	if m := jsonObjectPattern.FindString(text); m != "" {
		candidate = m
	}

	// Bare scalars such as "null" decode into a struct without error.
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal([]byte(candidate), &rec); err != nil {
		return nil, false
	}
	return &rec, true
}
