// ABOUTME: Token counting task with a character-based heuristic
// ABOUTME: Estimates token usage for content without a model round trip

package tokens

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Task estimates token counts for text content
type Task struct{}

// New creates a token counting task executor
func New() *Task {
	return &Task{}
}

// Execute estimates tokens as max(chars/4, words), a serviceable
// heuristic across latin-script models when no tokenizer is available.
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	content := cast.ToString(inputs["content"])
	model := cast.ToString(inputs["model"])
	if model == "" {
		model = "heuristic"
	}

	chars := utf8.RuneCountInString(content)
	words := len(strings.Fields(content))

	count := chars / 4
	if words > count {
		count = words
	}

	return map[string]any{
		"token_count": count,
		"model":       model,
		"characters":  chars,
	}, nil
}
