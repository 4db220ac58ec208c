package prompt

import (
	"encoding/json"
	"strings"

	"github.com/kalambet/forlove/internal/generator"
)

const previewRunes = 30

// ParseCandidates reads the model output. A JSON object with a candidates
// list is used as is; anything else becomes a single candidate holding the
// trimmed text.
func ParseCandidates(content string) []generator.WireCandidate {
	var parsed struct {
		Candidates []generator.WireCandidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil && parsed.Candidates != nil {
		return parsed.Candidates
	}

	text := strings.TrimSpace(content)
	if text == "" {
		return nil
	}
	return []generator.WireCandidate{{Text: text, Preview: Preview(text)}}
}

// Preview is the first 30 characters of text.
func Preview(text string) string {
	r := []rune(text)
	if len(r) > previewRunes {
		r = r[:previewRunes]
	}
	return string(r)
}
