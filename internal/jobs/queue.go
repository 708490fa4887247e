// ABOUTME: Priority queue for pending jobs
// ABOUTME: Orders by priority (high > normal > low), FIFO within a priority

package jobs

import (
	"container/heap"

	"github.com/loferris/artificer/pkg/types"
)

// queueItem wraps a job with its admission sequence number
type queueItem struct {
	job   *types.Job
	seq   uint64
	index int
}

// jobHeap implements heap.Interface. Higher priority first; equal
// priorities keep submission order.
type jobHeap []*queueItem

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	pi, pj := h[i].job.Priority.Weight(), h[j].job.Priority.Weight()
	if pi != pj {
		return pi > pj
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Queue is a priority queue of pending jobs. It is not goroutine-safe;
// the manager serializes access under its own lock.
type Queue struct {
	heap  jobHeap
	items map[string]*queueItem
	seq   uint64
}

// NewQueue creates an empty job queue
func NewQueue() *Queue {
	return &Queue{items: make(map[string]*queueItem)}
}

// Push adds a job to the queue
func (q *Queue) Push(job *types.Job) {
	q.seq++
	item := &queueItem{job: job, seq: q.seq}
	q.items[job.ID] = item
	heap.Push(&q.heap, item)
}

// Pop removes and returns the highest-priority oldest job, or nil
func (q *Queue) Pop() *types.Job {
	if q.heap.Len() == 0 {
		return nil
	}
	item := heap.Pop(&q.heap).(*queueItem)
	delete(q.items, item.job.ID)
	return item.job
}

// Remove takes a specific job out of the queue. Returns false when the
// job is not queued.
func (q *Queue) Remove(jobID string) bool {
	item, exists := q.items[jobID]
	if !exists {
		return false
	}
	heap.Remove(&q.heap, item.index)
	delete(q.items, jobID)
	return true
}

// Len returns the number of queued jobs
func (q *Queue) Len() int {
	return q.heap.Len()
}
