// ABOUTME: Tests for checkpoint stores
// ABOUTME: Covers save/load isolation, deletion, and the afero-backed file store

package graph

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/loferris/artificer/pkg/types"
)

func sampleCheckpoint() *Checkpoint {
	return &Checkpoint{
		ThreadID:   "thread-9",
		GraphName:  "approval-flow",
		State:      map[string]any{"approved": false, "notes": []any{"n1"}},
		NextNode:   "finalize",
		Iterations: 2,
		SavedAt:    time.Now().UTC(),
	}
}

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Save(sampleCheckpoint()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	loaded, err := store.Load("thread-9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if loaded.NextNode != "finalize" || loaded.Iterations != 2 {
		t.Errorf("Round-trip mismatch: %+v", loaded)
	}

	if err := store.Delete("thread-9"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := store.Load("thread-9"); !types.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got: %v", err)
	}
}

func TestMemoryStore_IsolatesState(t *testing.T) {
	store := NewMemoryStore()
	original := sampleCheckpoint()
	if err := store.Save(original); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's state must not affect the stored snapshot
	original.State["approved"] = true

	loaded, err := store.Load("thread-9")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.State["approved"] != false {
		t.Error("Stored checkpoint shares state with caller")
	}

	// Mutating a loaded copy must not affect later loads
	loaded.State["approved"] = true
	again, err := store.Load("thread-9")
	if err != nil {
		t.Fatal(err)
	}
	if again.State["approved"] != false {
		t.Error("Loaded checkpoint shares state with store")
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/checkpoints")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := store.Save(sampleCheckpoint()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	loaded, err := store.Load("thread-9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if loaded.GraphName != "approval-flow" || loaded.State["approved"] != false {
		t.Errorf("Round-trip mismatch: %+v", loaded)
	}

	if err := store.Delete("thread-9"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if _, err := store.Load("thread-9"); !types.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got: %v", err)
	}

	// Deleting again is a no-op
	if err := store.Delete("thread-9"); err != nil {
		t.Errorf("Expected idempotent delete, got: %v", err)
	}
}
