// ABOUTME: Checkpoint persistence for paused graph executions
// ABOUTME: In-memory store by default, with an afero-backed file store as an adapter

package graph

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/spf13/afero"

	"github.com/loferris/artificer/pkg/types"
)

// Checkpoint is a saved snapshot of a paused graph execution, keyed by
// thread id. NextNode is where execution resumes.
type Checkpoint struct {
	ThreadID   string         `json:"thread_id"`
	GraphName  string         `json:"graph_name"`
	State      map[string]any `json:"state"`
	NextNode   string         `json:"next_node"`
	Iterations int            `json:"iterations"`
	SavedAt    time.Time      `json:"saved_at"`
}

// CheckpointStore persists checkpoints. The in-memory implementation
// is authoritative; file-backed stores are a pluggable extension, not
// a core dependency.
type CheckpointStore interface {
	Save(checkpoint *Checkpoint) error
	Load(threadID string) (*Checkpoint, error)
	Delete(threadID string) error
}

// MemoryStore keeps checkpoints in process memory
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*Checkpoint
}

// NewMemoryStore creates an empty in-memory checkpoint store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]*Checkpoint)}
}

// Save stores a deep copy of the checkpoint so later state mutations
// cannot leak into the saved snapshot.
func (s *MemoryStore) Save(checkpoint *Checkpoint) error {
	copied, err := copyCheckpoint(checkpoint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[checkpoint.ThreadID] = copied
	return nil
}

// Load returns a deep copy of a stored checkpoint
func (s *MemoryStore) Load(threadID string) (*Checkpoint, error) {
	s.mu.RLock()
	checkpoint, exists := s.checkpoints[threadID]
	s.mu.RUnlock()

	if !exists {
		return nil, types.NewNotFoundError("checkpoint", threadID)
	}
	return copyCheckpoint(checkpoint)
}

// Delete removes a checkpoint; deleting a missing checkpoint is a no-op
func (s *MemoryStore) Delete(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, threadID)
	return nil
}

func copyCheckpoint(checkpoint *Checkpoint) (*Checkpoint, error) {
	copied := *checkpoint
	if checkpoint.State != nil {
		state, err := copystructure.Copy(checkpoint.State)
		if err != nil {
			return nil, fmt.Errorf("failed to copy checkpoint state: %w", err)
		}
		copied.State = state.(map[string]any)
	}
	return &copied, nil
}

// FileStore persists checkpoints as JSON documents on an afero
// filesystem (local directory, memory, or s3:// via the filesystem
// factory).
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a checkpoint store rooted at dir
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) file(threadID string) string {
	return path.Join(s.dir, threadID+".json")
}

// Save writes the checkpoint as a JSON document
func (s *FileStore) Save(checkpoint *Checkpoint) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return afero.WriteFile(s.fs, s.file(checkpoint.ThreadID), data, 0o644)
}

// Load reads a checkpoint back from its JSON document
func (s *FileStore) Load(threadID string) (*Checkpoint, error) {
	exists, err := afero.Exists(s.fs, s.file(threadID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.NewNotFoundError("checkpoint", threadID)
	}

	data, err := afero.ReadFile(s.fs, s.file(threadID))
	if err != nil {
		return nil, err
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes the checkpoint document if present
func (s *FileStore) Delete(threadID string) error {
	exists, err := afero.Exists(s.fs, s.file(threadID))
	if err != nil || !exists {
		return err
	}
	return s.fs.Remove(s.file(threadID))
}
