// ABOUTME: Registry for graph definitions and their compiled executors
// ABOUTME: Provides registration, lookup, listing, and human-readable summaries

package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/loferris/artificer/pkg/types"
)

// Summary is the listing form of a registered graph
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
	NodeCount   int    `json:"nodeCount"`
	EdgeCount   int    `json:"edgeCount"`
}

// Registry stores graph definitions with their executors by id
type Registry struct {
	mu     sync.RWMutex
	config *Config
	graphs map[string]*Executor
}

// NewRegistry creates an empty graph registry. The config is applied
// to every executor built at registration time.
func NewRegistry(config *Config) *Registry {
	return &Registry{
		config: config,
		graphs: make(map[string]*Executor),
	}
}

// Register validates the definition, compiles an executor for it, and
// stores both under the given id.
func (r *Registry) Register(graphID string, def *types.GraphDefinition) error {
	if graphID == "" {
		return types.NewValidationError("graph_id", "graph id is required")
	}

	executor, err := NewExecutor(def, r.config)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[graphID] = executor
	return nil
}

// Get returns the executor for a registered graph
func (r *Registry) Get(graphID string) (*Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, exists := r.graphs[graphID]
	if !exists {
		return nil, types.NewNotFoundError("graph", graphID)
	}
	return executor, nil
}

// Definition returns the definition of a registered graph
func (r *Registry) Definition(graphID string) (*types.GraphDefinition, error) {
	executor, err := r.Get(graphID)
	if err != nil {
		return nil, err
	}
	return executor.def, nil
}

// Has reports whether an id is registered
func (r *Registry) Has(graphID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.graphs[graphID]
	return exists
}

// List returns summaries of all registered graphs, sorted by id
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.graphs))
	for id, executor := range r.graphs {
		def := executor.def
		summaries = append(summaries, Summary{
			ID:          id,
			Name:        def.Name,
			Description: def.Description,
			Version:     def.Version,
			NodeCount:   len(def.Nodes),
			EdgeCount:   len(def.Edges),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Delete removes a registered graph
func (r *Registry) Delete(graphID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.graphs[graphID]; !exists {
		return types.NewNotFoundError("graph", graphID)
	}
	delete(r.graphs, graphID)
	return nil
}

// FormatSummary renders a human-readable description of a graph
func FormatSummary(def *types.GraphDefinition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Graph: %s\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", def.Description)
	}
	if def.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", def.Version)
	}
	fmt.Fprintf(&b, "Entry Point: %s\n", def.EntryPoint)
	fmt.Fprintf(&b, "Nodes: %d\n", len(def.Nodes))
	fmt.Fprintf(&b, "Edges: %d\n", len(def.Edges))

	b.WriteString("\nNodes:\n")
	for _, node := range def.Nodes {
		if node.Description != "" {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", node.ID, node.Type, node.Description)
		} else {
			fmt.Fprintf(&b, "  - %s (%s)\n", node.ID, node.Type)
		}
	}

	b.WriteString("\nEdges:\n")
	for _, edge := range def.Edges {
		if edge.ToNode.IsBranching() {
			fmt.Fprintf(&b, "  - %s -> [conditional]\n", edge.FromNode)
			branches := make([]string, 0, len(edge.ToNode.Branches))
			for branch := range edge.ToNode.Branches {
				branches = append(branches, branch)
			}
			sort.Strings(branches)
			for _, branch := range branches {
				fmt.Fprintf(&b, "      %s: %s\n", branch, edge.ToNode.Branches[branch])
			}
		} else {
			fmt.Fprintf(&b, "  - %s -> %s\n", edge.FromNode, edge.ToNode.Node)
		}
	}

	return b.String()
}
