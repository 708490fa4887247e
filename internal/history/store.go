// ABOUTME: Job history store persisting terminal job records
// ABOUTME: JSON records on an afero filesystem with query filters and stats

package history

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/loferris/artificer/pkg/types"
)

// Record is one terminal job written to history
type Record struct {
	JobID           string          `json:"job_id"`
	WorkflowID      string          `json:"workflow_id"`
	WorkflowType    string          `json:"workflow_type"`
	Status          types.JobStatus `json:"status"`
	Priority        types.Priority  `json:"priority"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	ExecutionTimeMS int64           `json:"execution_time_ms"`
	Error           string          `json:"error,omitempty"`
}

// Query filters history listings; zero values match everything
type Query struct {
	WorkflowID string
	Status     types.JobStatus
	Limit      int
}

// Stats summarizes recorded executions
type Stats struct {
	Total            int                     `json:"total"`
	ByStatus         map[types.JobStatus]int `json:"by_status"`
	ByWorkflow       map[string]int          `json:"by_workflow"`
	AverageDuration  time.Duration           `json:"average_duration"`
	FirstExecution   *time.Time              `json:"first_execution,omitempty"`
	LatestExecution  *time.Time              `json:"latest_execution,omitempty"`
	SuccessRate      float64                 `json:"success_rate"`
	CompletedRecords int                     `json:"completed_records"`
}

// Store persists terminal job records. The in-memory job table stays
// authoritative; history is an audit trail that survives as long as
// its backing filesystem does.
type Store struct {
	mu         sync.Mutex
	fs         afero.Fs
	dir        string
	maxEntries int
}

// New creates a history store rooted at dir
func New(fs afero.Fs, dir string, maxEntries int) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{fs: fs, dir: dir, maxEntries: maxEntries}, nil
}

// RecordJob writes a terminal job to history and prunes old records
func (s *Store) RecordJob(job *types.Job) error {
	record := Record{
		JobID:           job.ID,
		WorkflowID:      job.WorkflowID,
		WorkflowType:    string(job.WorkflowType),
		Status:          job.Status,
		Priority:        job.Priority,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
		ExecutionTimeMS: job.ExecutionTimeMS,
		Error:           job.Error,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("%s_%s.json", record.CreatedAt.UTC().Format("20060102T150405.000000000"), job.ID)
	if err := afero.WriteFile(s.fs, path.Join(s.dir, name), data, 0o644); err != nil {
		return err
	}
	return s.pruneLocked()
}

// List returns records matching the query, newest first
func (s *Store) List(query *Query) ([]Record, error) {
	if query == nil {
		query = &Query{}
	}

	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, record := range records {
		if query.WorkflowID != "" && record.WorkflowID != query.WorkflowID {
			continue
		}
		if query.Status != "" && record.Status != query.Status {
			continue
		}
		filtered = append(filtered, record)
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
	}
	return filtered, nil
}

// GetStats aggregates the recorded executions
func (s *Store) GetStats() (*Stats, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ByStatus:   make(map[types.JobStatus]int),
		ByWorkflow: make(map[string]int),
	}

	var totalDuration time.Duration
	for i := range records {
		record := records[i]
		stats.Total++
		stats.ByStatus[record.Status]++
		stats.ByWorkflow[record.WorkflowID]++
		totalDuration += time.Duration(record.ExecutionTimeMS) * time.Millisecond

		if record.Status == types.JobCompleted {
			stats.CompletedRecords++
		}
		created := record.CreatedAt
		if stats.FirstExecution == nil || created.Before(*stats.FirstExecution) {
			stats.FirstExecution = &created
		}
		if stats.LatestExecution == nil || created.After(*stats.LatestExecution) {
			stats.LatestExecution = &created
		}
	}

	if stats.Total > 0 {
		stats.AverageDuration = totalDuration / time.Duration(stats.Total)
		stats.SuccessRate = float64(stats.CompletedRecords) / float64(stats.Total)
	}
	return stats, nil
}

func (s *Store) readAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := afero.ReadFile(s.fs, path.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// pruneLocked drops the oldest records beyond maxEntries
func (s *Store) pruneLocked() error {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	if len(names) <= s.maxEntries {
		return nil
	}

	// Timestamp-prefixed names sort chronologically
	sort.Strings(names)
	for _, name := range names[:len(names)-s.maxEntries] {
		if err := s.fs.Remove(path.Join(s.dir, name)); err != nil {
			return err
		}
	}
	return nil
}
