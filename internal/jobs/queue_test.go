// ABOUTME: Tests for the job priority queue
// ABOUTME: Covers priority ordering, FIFO within priority, and removal

package jobs

import (
	"fmt"
	"testing"

	"github.com/loferris/artificer/pkg/types"
)

func queuedJob(id string, priority types.Priority) *types.Job {
	return &types.Job{ID: id, Priority: priority, Status: types.JobPending}
}

func TestQueue_PriorityOrder(t *testing.T) {
	q := NewQueue()
	q.Push(queuedJob("low", types.PriorityLow))
	q.Push(queuedJob("high", types.PriorityHigh))
	q.Push(queuedJob("normal", types.PriorityNormal))

	want := []string{"high", "normal", "low"}
	for _, expected := range want {
		job := q.Pop()
		if job == nil || job.ID != expected {
			t.Fatalf("Expected %s, got %v", expected, job)
		}
	}
	if q.Pop() != nil {
		t.Error("Expected empty queue")
	}
}

func TestQueue_FIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(queuedJob(fmt.Sprintf("job-%d", i), types.PriorityNormal))
	}

	for i := 0; i < 5; i++ {
		job := q.Pop()
		if job.ID != fmt.Sprintf("job-%d", i) {
			t.Fatalf("Expected job-%d, got %s", i, job.ID)
		}
	}
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	q.Push(queuedJob("keep", types.PriorityNormal))
	q.Push(queuedJob("drop", types.PriorityHigh))

	if !q.Remove("drop") {
		t.Fatal("Expected removal to succeed")
	}
	if q.Remove("drop") {
		t.Error("Expected second removal to fail")
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 queued job, got %d", q.Len())
	}
	if job := q.Pop(); job.ID != "keep" {
		t.Errorf("Expected 'keep', got %s", job.ID)
	}
}
