// ABOUTME: Tests for core types
// ABOUTME: Covers the job state machine, priorities, and edge target encoding

package types

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestJobStatus_Terminal(t *testing.T) {
	terminal := []JobStatus{JobCompleted, JobFailed, JobCancelled, JobTimeout}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("Expected %s to be terminal", status)
		}
	}
	for _, status := range []JobStatus{JobPending, JobRunning, JobPaused} {
		if status.IsTerminal() {
			t.Errorf("Expected %s to be non-terminal", status)
		}
	}
}

func TestJobStatus_Transitions(t *testing.T) {
	allowed := []struct{ from, to JobStatus }{
		{JobPending, JobRunning},
		{JobPending, JobCancelled},
		{JobRunning, JobCompleted},
		{JobRunning, JobFailed},
		{JobRunning, JobCancelled},
		{JobRunning, JobTimeout},
		{JobRunning, JobPaused},
		{JobPaused, JobRunning},
		{JobPaused, JobCancelled},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to JobStatus }{
		{JobCompleted, JobRunning},
		{JobCancelled, JobRunning},
		{JobFailed, JobPending},
		{JobRunning, JobPending},
		{JobPaused, JobCompleted},
		{JobPending, JobCompleted},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestPriority(t *testing.T) {
	if PriorityHigh.Weight() <= PriorityNormal.Weight() || PriorityNormal.Weight() <= PriorityLow.Weight() {
		t.Error("Expected strict priority ordering high > normal > low")
	}
	if !PriorityLow.Valid() || Priority("urgent").Valid() {
		t.Error("Unexpected priority validity")
	}
	if Priority("mystery").Weight() != PriorityNormal.Weight() {
		t.Error("Unknown priorities should rank as normal")
	}
}

func TestEdgeTarget_JSON(t *testing.T) {
	var scalar EdgeTarget
	if err := json.Unmarshal([]byte(`"next"`), &scalar); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if scalar.Node != "next" || scalar.IsBranching() {
		t.Errorf("Unexpected scalar target: %+v", scalar)
	}

	var branching EdgeTarget
	if err := json.Unmarshal([]byte(`{"yes": "accept", "no": "END"}`), &branching); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !branching.IsBranching() || branching.Branches["no"] != "END" {
		t.Errorf("Unexpected branching target: %+v", branching)
	}

	encoded, err := json.Marshal(branching)
	if err != nil {
		t.Fatal(err)
	}
	var roundTrip EdgeTarget
	if err := json.Unmarshal(encoded, &roundTrip); err != nil {
		t.Fatal(err)
	}
	if roundTrip.Branches["yes"] != "accept" {
		t.Errorf("Round-trip mismatch: %+v", roundTrip)
	}
}

func TestEdgeTarget_YAML(t *testing.T) {
	var edge EdgeDefinition
	doc := "from_node: route\nto_node:\n  approved: finalize\n  rejected: END\n"
	if err := yaml.Unmarshal([]byte(doc), &edge); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if edge.ToNode.Branches["approved"] != "finalize" {
		t.Errorf("Unexpected branches: %+v", edge.ToNode)
	}

	var plain EdgeDefinition
	if err := yaml.Unmarshal([]byte("from_node: a\nto_node: b\n"), &plain); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if plain.ToNode.Node != "b" {
		t.Errorf("Unexpected node: %+v", plain.ToNode)
	}
}

func TestNewProgress(t *testing.T) {
	p := NewProgress(3, 10, "working")
	if p.Percent != 30 {
		t.Errorf("Expected 30 percent, got %d", p.Percent)
	}
	empty := NewProgress(0, 0, "")
	if empty.Percent != 0 {
		t.Errorf("Expected 0 percent for empty total, got %d", empty.Percent)
	}
}

func TestValidateConcurrent(t *testing.T) {
	if v, err := ValidateConcurrent(0); err != nil || v != DefaultConcurrent {
		t.Errorf("Expected default, got %d, %v", v, err)
	}
	if _, err := ValidateConcurrent(-1); err == nil {
		t.Error("Expected error for negative value")
	}
	if _, err := ValidateConcurrent(MaxConcurrent + 1); err == nil {
		t.Error("Expected error above maximum")
	}
}

func TestWorkflowDefinition_Task(t *testing.T) {
	def := &WorkflowDefinition{Tasks: []TaskDefinition{{ID: "a"}, {ID: "b"}}}
	if def.Task("b") == nil || def.Task("ghost") != nil {
		t.Error("Unexpected task lookup behavior")
	}
}
