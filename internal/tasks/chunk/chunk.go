// ABOUTME: Chunking task splitting document text into overlapping segments
// ABOUTME: Produces retrieval-sized chunks with configurable size and overlap

package chunk

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Task splits text into overlapping chunks
type Task struct{}

// New creates a chunking task executor
func New() *Task {
	return &Task{}
}

// Execute splits the input content. Accepts either "content" or
// "text"; returns the chunks, their count, and the echoed document
// identity fields when present.
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	content := cast.ToString(inputs["content"])
	if content == "" {
		content = cast.ToString(inputs["text"])
	}

	size := cast.ToInt(inputs["chunk_size"])
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := cast.ToInt(inputs["chunk_overlap"])
	if inputs["chunk_overlap"] == nil || overlap < 0 {
		overlap = defaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", overlap, size)
	}

	chunks := split(content, size, overlap)

	result := map[string]any{
		"chunks":       chunks,
		"total_chunks": len(chunks),
	}
	if documentID := cast.ToString(inputs["document_id"]); documentID != "" {
		result["document_id"] = documentID
	}
	if projectID := cast.ToString(inputs["project_id"]); projectID != "" {
		result["project_id"] = projectID
	}
	return result, nil
}

// split walks the rune sequence with a sliding window
func split(content string, size, overlap int) []any {
	runes := []rune(content)
	if len(runes) == 0 {
		return []any{}
	}

	step := size - overlap
	chunks := make([]any, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
