// ABOUTME: Dependency resolver with topological layering for task scheduling
// ABOUTME: Builds the task dependency graph and computes parallel execution layers

package resolver

import (
	"fmt"

	"github.com/loferris/artificer/pkg/types"
)

// TaskNode is a task with its resolved dependency links
type TaskNode struct {
	Task       *types.TaskDefinition
	Dependents []*TaskNode
	InDegree   int
	Layer      int
}

// ExecutionLayer groups tasks whose dependencies are all satisfied by
// earlier layers; tasks within a layer may run in parallel.
type ExecutionLayer struct {
	Tasks  []*TaskNode
	Number int
}

// DependencyResolver builds execution plans from task definitions
type DependencyResolver struct {
	nodes  map[string]*TaskNode
	order  []string // declared task order, for deterministic layering
	layers []*ExecutionLayer
}

// New creates a new dependency resolver
func New() *DependencyResolver {
	return &DependencyResolver{
		nodes: make(map[string]*TaskNode),
	}
}

// BuildGraph builds the dependency graph from workflow tasks. Every
// depends_on entry must name a task in the same definition, and the
// resulting relation must be acyclic.
func (r *DependencyResolver) BuildGraph(tasks []types.TaskDefinition) error {
	r.nodes = make(map[string]*TaskNode, len(tasks))
	r.order = make([]string, 0, len(tasks))
	r.layers = nil

	for i := range tasks {
		task := &tasks[i]
		if _, exists := r.nodes[task.ID]; exists {
			return types.NewDependencyError(task.ID, nil, "duplicate task id")
		}
		r.nodes[task.ID] = &TaskNode{Task: task, Layer: -1}
		r.order = append(r.order, task.ID)
	}

	for _, id := range r.order {
		node := r.nodes[id]
		for _, depID := range node.Task.DependsOn {
			dep, exists := r.nodes[depID]
			if !exists {
				return types.NewDependencyError(id, node.Task.DependsOn,
					fmt.Sprintf("dependency '%s' not found", depID))
			}
			dep.Dependents = append(dep.Dependents, node)
			node.InDegree++
		}
	}

	return r.detectCycles()
}

// Layers returns tasks organized into parallel execution layers
func (r *DependencyResolver) Layers() ([]*ExecutionLayer, error) {
	if r.layers == nil {
		if err := r.computeLayers(); err != nil {
			return nil, err
		}
	}
	return r.layers, nil
}

// Order returns task ids in topological order for sequential execution
func (r *DependencyResolver) Order() ([]string, error) {
	layers, err := r.Layers()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(r.order))
	for _, layer := range layers {
		for _, node := range layer.Tasks {
			ids = append(ids, node.Task.ID)
		}
	}
	return ids, nil
}

// computeLayers runs Kahn's algorithm, emitting one layer per round of
// zero-in-degree tasks. Within a layer, declared order is preserved.
func (r *DependencyResolver) computeLayers() error {
	inDegree := make(map[string]int, len(r.nodes))
	for id, node := range r.nodes {
		inDegree[id] = node.InDegree
	}

	var current []*TaskNode
	for _, id := range r.order {
		if inDegree[id] == 0 {
			node := r.nodes[id]
			node.Layer = 0
			current = append(current, node)
		}
	}

	processed := 0
	for layerNum := 0; len(current) > 0; layerNum++ {
		layer := &ExecutionLayer{Number: layerNum, Tasks: current}
		r.layers = append(r.layers, layer)

		ready := make(map[string]bool)
		for _, node := range current {
			processed++
			for _, dependent := range node.Dependents {
				inDegree[dependent.Task.ID]--
				if inDegree[dependent.Task.ID] == 0 {
					dependent.Layer = layerNum + 1
					ready[dependent.Task.ID] = true
				}
			}
		}

		current = nil
		for _, id := range r.order {
			if ready[id] {
				current = append(current, r.nodes[id])
			}
		}
	}

	if processed != len(r.nodes) {
		return types.NewDependencyError("", nil,
			fmt.Sprintf("circular dependency detected: processed %d/%d tasks", processed, len(r.nodes)))
	}
	return nil
}

// detectCycles performs three-color DFS over the dependency relation
func (r *DependencyResolver) detectCycles() error {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // done
	)
	color := make(map[string]int, len(r.nodes))
	var path []string

	var dfs func(id string) error
	dfs = func(id string) error {
		switch color[id] {
		case gray:
			cycle := append(append([]string{}, path...), id)
			return types.NewDependencyError(id, cycle,
				fmt.Sprintf("circular dependency detected: %v", cycle))
		case black:
			return nil
		}

		color[id] = gray
		path = append(path, id)

		for _, depID := range r.nodes[id].Task.DependsOn {
			if err := dfs(depID); err != nil {
				return err
			}
		}

		color[id] = black
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range r.order {
		if color[id] == white {
			if err := dfs(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats returns summary statistics about the dependency graph
func (r *DependencyResolver) Stats() map[string]any {
	totalEdges := 0
	for _, node := range r.nodes {
		totalEdges += len(node.Task.DependsOn)
	}

	stats := map[string]any{
		"total_tasks": len(r.nodes),
		"total_edges": totalEdges,
		"layers":      len(r.layers),
	}

	if len(r.layers) > 0 {
		maxWidth := 0
		sizes := make([]int, len(r.layers))
		for i, layer := range r.layers {
			sizes[i] = len(layer.Tasks)
			if sizes[i] > maxWidth {
				maxWidth = sizes[i]
			}
		}
		stats["layer_sizes"] = sizes
		stats["max_parallelism"] = maxWidth
	}

	return stats
}
