// ABOUTME: Tests for the custom workflow registry
// ABOUTME: Covers registration round-trips, listing, deletion, and validation gating

package registry

import (
	"testing"

	"github.com/loferris/artificer/pkg/types"
)

func sampleDef() *types.WorkflowDefinition {
	return &types.WorkflowDefinition{
		Name:    "sample",
		Version: "1.0.0",
		Tasks: []types.TaskDefinition{
			{ID: "one", Type: "debug", Inputs: map[string]any{"message": "hi"}},
		},
	}
}

func TestRegisterGetRoundTrip(t *testing.T) {
	r := New()

	if err := r.Register("my-flow", sampleDef()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	def, err := r.Get("my-flow")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if def.Name != "sample" || len(def.Tasks) != 1 {
		t.Errorf("Round-trip mismatch: %+v", def)
	}
}

func TestRegister_RejectsInvalid(t *testing.T) {
	r := New()

	if err := r.Register("", sampleDef()); err == nil {
		t.Error("Expected error for empty id")
	}
	if err := r.Register("bad", &types.WorkflowDefinition{Name: "x"}); err == nil {
		t.Error("Expected error for definition without tasks")
	}
	if r.Has("bad") {
		t.Error("Invalid definition must not be stored")
	}
}

func TestList(t *testing.T) {
	r := New()
	_ = r.Register("b-flow", sampleDef())
	_ = r.Register("a-flow", sampleDef())

	summaries := r.List()
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != "a-flow" || summaries[1].ID != "b-flow" {
		t.Errorf("Expected sorted ids, got: %v", summaries)
	}
	if summaries[0].TaskCount != 1 {
		t.Errorf("Unexpected task count: %d", summaries[0].TaskCount)
	}
}

func TestDelete(t *testing.T) {
	r := New()
	_ = r.Register("gone", sampleDef())

	if err := r.Delete("gone"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := r.Get("gone"); !types.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got: %v", err)
	}
	if err := r.Delete("gone"); !types.IsNotFound(err) {
		t.Errorf("Expected not-found for second delete, got: %v", err)
	}
}
