// ABOUTME: Tests for the pre-built workflow library
// ABOUTME: Covers lookup, listing, and validity of the shipped definitions

package library

import (
	"testing"

	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

func TestShippedDefinitionsAreValid(t *testing.T) {
	l := New()

	for _, entry := range l.List() {
		def, err := l.Get(entry.ID)
		if err != nil {
			t.Errorf("Expected %s to resolve, got: %v", entry.ID, err)
			continue
		}
		if err := validator.ValidateWorkflow(def); err != nil {
			t.Errorf("Pre-built workflow %s is invalid: %v", entry.ID, err)
		}
	}
}

func TestGetAndHas(t *testing.T) {
	l := New()

	if !l.Has("pdf-to-html") {
		t.Error("Expected pdf-to-html to exist")
	}
	if l.Has("ghost") {
		t.Error("Unexpected workflow")
	}
	if _, err := l.Get("ghost"); !types.IsNotFound(err) {
		t.Errorf("Expected not-found, got: %v", err)
	}
}

func TestList(t *testing.T) {
	l := New()

	entries := l.List()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 pre-built workflows, got %d", len(entries))
	}
	if entries[0].ID != "multi-format-export" {
		t.Errorf("Expected sorted ids, got: %v", entries)
	}
	for _, entry := range entries {
		if len(entry.Inputs) == 0 {
			t.Errorf("Expected declared inputs for %s", entry.ID)
		}
	}
}
