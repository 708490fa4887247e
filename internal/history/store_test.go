// ABOUTME: Tests for the job history store
// ABOUTME: Covers recording, querying, stats, and pruning on a memory filesystem

package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/loferris/artificer/pkg/types"
)

func record(t *testing.T, store *Store, id, workflow string, status types.JobStatus, created time.Time) {
	t.Helper()
	started := created.Add(time.Second)
	completed := started.Add(2 * time.Second)
	err := store.RecordJob(&types.Job{
		ID:              id,
		WorkflowID:      workflow,
		WorkflowType:    types.WorkflowCustom,
		Status:          status,
		Priority:        types.PriorityNormal,
		CreatedAt:       created,
		StartedAt:       &started,
		CompletedAt:     &completed,
		ExecutionTimeMS: 2000,
	})
	if err != nil {
		t.Fatalf("Failed to record job: %v", err)
	}
}

func TestRecordAndList(t *testing.T) {
	store, err := New(afero.NewMemMapFs(), "/history", 100)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	record(t, store, "j1", "pdf-to-html", types.JobCompleted, base)
	record(t, store, "j2", "pdf-to-html", types.JobFailed, base.Add(time.Minute))
	record(t, store, "j3", "rag", types.JobCompleted, base.Add(2*time.Minute))

	all, err := store.List(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].JobID != "j3" {
		t.Errorf("Expected newest first, got %s", all[0].JobID)
	}

	failed, err := store.List(&Query{Status: types.JobFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].JobID != "j2" {
		t.Errorf("Unexpected status filter result: %v", failed)
	}

	byWorkflow, err := store.List(&Query{WorkflowID: "pdf-to-html", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(byWorkflow) != 1 || byWorkflow[0].JobID != "j2" {
		t.Errorf("Unexpected workflow filter result: %v", byWorkflow)
	}
}

func TestStats(t *testing.T) {
	store, err := New(afero.NewMemMapFs(), "/history", 100)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	record(t, store, "j1", "wf", types.JobCompleted, base)
	record(t, store, "j2", "wf", types.JobCompleted, base.Add(time.Hour))
	record(t, store, "j3", "wf", types.JobFailed, base.Add(2*time.Hour))

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Expected 3 total, got %d", stats.Total)
	}
	if stats.ByStatus[types.JobCompleted] != 2 {
		t.Errorf("Unexpected status counts: %v", stats.ByStatus)
	}
	if stats.SuccessRate < 0.66 || stats.SuccessRate > 0.67 {
		t.Errorf("Unexpected success rate: %f", stats.SuccessRate)
	}
	if stats.AverageDuration != 2*time.Second {
		t.Errorf("Unexpected average duration: %v", stats.AverageDuration)
	}
	if stats.FirstExecution == nil || !stats.FirstExecution.Equal(base) {
		t.Errorf("Unexpected first execution: %v", stats.FirstExecution)
	}
}

func TestPrune(t *testing.T) {
	store, err := New(afero.NewMemMapFs(), "/history", 5)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		record(t, store, fmt.Sprintf("j%d", i), "wf", types.JobCompleted, base.Add(time.Duration(i)*time.Minute))
	}

	all, err := store.List(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected pruning to 5 records, got %d", len(all))
	}
	// The oldest records are the ones pruned
	for _, rec := range all {
		if rec.JobID == "j0" || rec.JobID == "j1" || rec.JobID == "j2" {
			t.Errorf("Expected old record %s to be pruned", rec.JobID)
		}
	}
}
