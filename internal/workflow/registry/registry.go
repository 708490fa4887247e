// ABOUTME: Registry for custom workflow definitions
// ABOUTME: Process-global store with validated registration and snapshot reads

package registry

import (
	"sort"
	"sync"

	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

// Summary is the listing form of a registered workflow
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	TaskCount   int    `json:"taskCount"`
}

// Registry stores custom workflow definitions by id
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]*types.WorkflowDefinition
}

// New creates an empty workflow registry
func New() *Registry {
	return &Registry{workflows: make(map[string]*types.WorkflowDefinition)}
}

// Register validates and stores a definition under the given id.
// Re-registering an id replaces the previous definition.
func (r *Registry) Register(workflowID string, def *types.WorkflowDefinition) error {
	if workflowID == "" {
		return types.NewValidationError("workflow_id", "workflow id is required")
	}
	if err := validator.ValidateWorkflow(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[workflowID] = def
	return nil
}

// Get returns a registered definition
func (r *Registry) Get(workflowID string) (*types.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.workflows[workflowID]
	if !exists {
		return nil, types.NewNotFoundError("workflow", workflowID)
	}
	return def, nil
}

// Has reports whether an id is registered
func (r *Registry) Has(workflowID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.workflows[workflowID]
	return exists
}

// List returns summaries of all registered workflows, sorted by id
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.workflows))
	for id, def := range r.workflows {
		summaries = append(summaries, Summary{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Version:     def.Version,
			TaskCount:   len(def.Tasks),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Delete removes a registered workflow
func (r *Registry) Delete(workflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[workflowID]; !exists {
		return types.NewNotFoundError("workflow", workflowID)
	}
	delete(r.workflows, workflowID)
	return nil
}
