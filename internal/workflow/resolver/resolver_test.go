// ABOUTME: Tests for dependency graph construction and layer computation
// ABOUTME: Covers layering, topological order, cycle detection, and unknown deps

package resolver

import (
	"testing"

	"github.com/loferris/artificer/pkg/types"
)

func task(id string, deps ...string) types.TaskDefinition {
	return types.TaskDefinition{ID: id, Type: "debug", Inputs: map[string]any{}, DependsOn: deps}
}

func TestBuildGraph_Layers(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{
		task("extract"),
		task("a", "extract"),
		task("b", "extract"),
		task("c", "extract"),
		task("merge", "a", "b", "c"),
	}

	if err := r.BuildGraph(tasks); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	layers, err := r.Layers()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(layers))
	}
	if len(layers[0].Tasks) != 1 || layers[0].Tasks[0].Task.ID != "extract" {
		t.Errorf("Unexpected first layer: %v", layers[0].Tasks)
	}
	if len(layers[1].Tasks) != 3 {
		t.Errorf("Expected 3 tasks in middle layer, got %d", len(layers[1].Tasks))
	}
	if len(layers[2].Tasks) != 1 || layers[2].Tasks[0].Task.ID != "merge" {
		t.Errorf("Unexpected final layer: %v", layers[2].Tasks)
	}
}

func TestOrder_RespectsDependencies(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{
		task("export", "import"),
		task("import", "extract"),
		task("extract"),
	}

	if err := r.BuildGraph(tasks); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	order, err := r.Order()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["extract"] > pos["import"] || pos["import"] > pos["export"] {
		t.Errorf("Topological order violated: %v", order)
	}
}

func TestBuildGraph_CycleDetected(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{
		task("a", "b"),
		task("b", "a"),
	}

	err := r.BuildGraph(tasks)
	if err == nil {
		t.Fatal("Expected cycle error")
	}
	if _, ok := err.(*types.DependencyError); !ok {
		t.Errorf("Expected DependencyError, got %T", err)
	}
}

func TestBuildGraph_UnknownDependency(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{task("a", "ghost")}

	if err := r.BuildGraph(tasks); err == nil {
		t.Fatal("Expected error for unknown dependency")
	}
}

func TestBuildGraph_DuplicateID(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{task("a"), task("a")}

	if err := r.BuildGraph(tasks); err == nil {
		t.Fatal("Expected error for duplicate task id")
	}
}

func TestStats(t *testing.T) {
	r := New()
	tasks := []types.TaskDefinition{
		task("extract"),
		task("a", "extract"),
		task("b", "extract"),
	}

	if err := r.BuildGraph(tasks); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := r.Layers(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	stats := r.Stats()
	if stats["total_tasks"] != 3 {
		t.Errorf("Expected 3 tasks, got %v", stats["total_tasks"])
	}
	if stats["total_edges"] != 2 {
		t.Errorf("Expected 2 edges, got %v", stats["total_edges"])
	}
	if stats["max_parallelism"] != 2 {
		t.Errorf("Expected max parallelism 2, got %v", stats["max_parallelism"])
	}
}
