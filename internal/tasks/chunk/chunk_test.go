// ABOUTME: Tests for the chunking task
// ABOUTME: Covers sizing, overlap, defaults, and edge cases

package chunk

import (
	"context"
	"strings"
	"testing"
)

func TestExecute_ChunksWithOverlap(t *testing.T) {
	task := New()
	content := strings.Repeat("a", 25)

	result, err := task.Execute(context.Background(), map[string]any{
		"content":       content,
		"chunk_size":    10,
		"chunk_overlap": 5,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	chunks := result["chunks"].([]any)
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("a", 10) {
		t.Errorf("Unexpected first chunk: %q", chunks[0])
	}
	if result["total_chunks"] != 4 {
		t.Errorf("Unexpected total_chunks: %v", result["total_chunks"])
	}
}

func TestExecute_TextAlias(t *testing.T) {
	task := New()

	result, err := task.Execute(context.Background(), map[string]any{
		"text":          "hello world",
		"chunk_size":    100,
		"chunk_overlap": 0,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	chunks := result["chunks"].([]any)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Errorf("Unexpected chunks: %v", chunks)
	}
}

func TestExecute_EmptyContent(t *testing.T) {
	task := New()

	result, err := task.Execute(context.Background(), map[string]any{"content": ""})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result["total_chunks"] != 0 {
		t.Errorf("Expected 0 chunks, got %v", result["total_chunks"])
	}
}

func TestExecute_OverlapMustBeSmallerThanSize(t *testing.T) {
	task := New()

	_, err := task.Execute(context.Background(), map[string]any{
		"content":       "abc",
		"chunk_size":    10,
		"chunk_overlap": 10,
	})
	if err == nil {
		t.Error("Expected error for overlap >= size")
	}
}

func TestExecute_EchoesDocumentIdentity(t *testing.T) {
	task := New()

	result, err := task.Execute(context.Background(), map[string]any{
		"content":     "body",
		"document_id": "doc1",
		"project_id":  "proj1",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result["document_id"] != "doc1" || result["project_id"] != "proj1" {
		t.Errorf("Expected identity fields echoed, got: %v", result)
	}
}
