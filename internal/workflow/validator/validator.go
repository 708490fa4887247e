// ABOUTME: Structural and semantic validation for workflow and graph definitions
// ABOUTME: The single authority on definition well-formedness; failures are values

package validator

import (
	"fmt"

	"github.com/loferris/artificer/internal/workflow/refs"
	"github.com/loferris/artificer/internal/workflow/resolver"
	"github.com/loferris/artificer/pkg/types"
)

// ValidateWorkflow checks a workflow definition. Checks run in order:
// required fields, unique task ids, resolvable dependencies, acyclic
// dependency relation, and well-formed references. Task types are not
// checked here; the task runner owns the type catalogue.
func ValidateWorkflow(def *types.WorkflowDefinition) error {
	if def == nil {
		return types.NewValidationError("", "definition is required")
	}
	if def.Name == "" {
		return types.NewValidationError("name", "workflow name is required")
	}
	if len(def.Tasks) == 0 {
		return types.NewValidationError("tasks", "workflow must have at least one task")
	}

	taskIDs := make(map[string]bool, len(def.Tasks))
	for i, task := range def.Tasks {
		if task.ID == "" {
			return types.NewValidationError("tasks", fmt.Sprintf("task %d: missing required field: id", i))
		}
		if task.Type == "" {
			return types.NewValidationError("tasks", fmt.Sprintf("task '%s': missing required field: type", task.ID))
		}
		if task.Inputs == nil {
			return types.NewValidationError("tasks", fmt.Sprintf("task '%s': missing required field: inputs", task.ID))
		}
		if taskIDs[task.ID] {
			return types.NewValidationError("tasks", fmt.Sprintf("duplicate task id: %s", task.ID))
		}
		taskIDs[task.ID] = true

		if task.Retry < 0 {
			return types.NewValidationError("tasks", fmt.Sprintf("task '%s': retry cannot be negative", task.ID))
		}
	}

	// Dependency resolution and cycle detection share the scheduler's
	// graph builder, so validation and execution cannot disagree.
	deps := resolver.New()
	if err := deps.BuildGraph(def.Tasks); err != nil {
		return types.NewValidationError("tasks", err.Error())
	}

	for _, task := range def.Tasks {
		for key, value := range task.Inputs {
			if err := checkReference(value, taskIDs); err != nil {
				return types.NewValidationError("tasks",
					fmt.Sprintf("task '%s' input '%s': %v", task.ID, key, err))
			}
		}
	}

	for key, reference := range def.Output {
		if err := checkReference(reference, taskIDs); err != nil {
			return types.NewValidationError("output", fmt.Sprintf("output '%s': %v", key, err))
		}
	}

	return nil
}

// checkReference verifies that a reference names a valid source.
// workflow.input.* is accepted blindly (resolved at run time against
// actual inputs); task references must name a declared task. Nested
// maps and arrays are checked recursively.
func checkReference(value any, taskIDs map[string]bool) error {
	switch v := value.(type) {
	case map[string]any:
		for _, nested := range v {
			if err := checkReference(nested, taskIDs); err != nil {
				return err
			}
		}
		return nil
	case []any:
		for _, nested := range v {
			if err := checkReference(nested, taskIDs); err != nil {
				return err
			}
		}
		return nil
	}

	ref, ok := refs.Parse(value)
	if !ok {
		return nil
	}
	if ref.WorkflowInput {
		return nil
	}
	if !taskIDs[ref.TaskID] {
		return fmt.Errorf("reference '%s' names unknown task '%s'", ref.Raw, ref.TaskID)
	}
	return nil
}

// ValidateGraph checks a graph definition: unique node ids, the
// type-specific required fields of each node variant, existing entry
// and finish points, edge endpoints that exist (or END), and non-empty
// conditional routing maps.
func ValidateGraph(def *types.GraphDefinition) error {
	if def == nil {
		return types.NewValidationError("", "definition is required")
	}
	if def.Name == "" {
		return types.NewValidationError("name", "graph name is required")
	}
	if len(def.Nodes) == 0 {
		return types.NewValidationError("nodes", "graph must have at least one node")
	}
	if def.EntryPoint == "" {
		return types.NewValidationError("entry_point", "entry_point is required")
	}

	nodeIDs := make(map[string]bool, len(def.Nodes))
	for _, node := range def.Nodes {
		if node.ID == "" {
			return types.NewValidationError("nodes", "node missing id field")
		}
		if node.Type == "" {
			return types.NewValidationError("nodes", fmt.Sprintf("node '%s' missing type field", node.ID))
		}
		if nodeIDs[node.ID] {
			return types.NewValidationError("nodes", fmt.Sprintf("duplicate node id: %s", node.ID))
		}
		nodeIDs[node.ID] = true

		if err := checkNodeFields(&node); err != nil {
			return err
		}
	}

	if !nodeIDs[def.EntryPoint] {
		return types.NewValidationError("entry_point",
			fmt.Sprintf("entry point '%s' not found in nodes", def.EntryPoint))
	}

	for _, finish := range def.FinishPoints {
		if !nodeIDs[finish] {
			return types.NewValidationError("finish_points",
				fmt.Sprintf("finish point '%s' not found in nodes", finish))
		}
	}

	for i, edge := range def.Edges {
		if edge.FromNode == "" {
			return types.NewValidationError("edges", fmt.Sprintf("edge %d missing from_node", i))
		}
		if !nodeIDs[edge.FromNode] {
			return types.NewValidationError("edges",
				fmt.Sprintf("edge from_node '%s' not found in nodes", edge.FromNode))
		}

		if edge.ToNode.IsBranching() {
			for branch, target := range edge.ToNode.Branches {
				if target != types.EndNode && !nodeIDs[target] {
					return types.NewValidationError("edges",
						fmt.Sprintf("branch '%s' target '%s' not found in nodes", branch, target))
				}
			}
		} else {
			if edge.ToNode.Node == "" {
				return types.NewValidationError("edges", fmt.Sprintf("edge %d missing to_node", i))
			}
			if edge.ToNode.Node != types.EndNode && !nodeIDs[edge.ToNode.Node] {
				return types.NewValidationError("edges",
					fmt.Sprintf("edge to_node '%s' not found in nodes", edge.ToNode.Node))
			}
		}
	}

	return nil
}

// checkNodeFields enforces the per-variant required fields
func checkNodeFields(node *types.NodeDefinition) error {
	switch node.Type {
	case types.NodeAgent:
		if node.Model == "" {
			return types.NewValidationError("nodes",
				fmt.Sprintf("agent node '%s' missing model field", node.ID))
		}
		if node.SystemPrompt == "" {
			return types.NewValidationError("nodes",
				fmt.Sprintf("agent node '%s' missing system_prompt field", node.ID))
		}
	case types.NodeTool:
		if node.FunctionName == "" && node.FunctionCode == "" {
			return types.NewValidationError("nodes",
				fmt.Sprintf("tool node '%s' must have function_name or function_code", node.ID))
		}
	case types.NodeConditional:
		if node.ConditionCode == "" {
			return types.NewValidationError("nodes",
				fmt.Sprintf("conditional node '%s' missing condition_code", node.ID))
		}
	case types.NodeHuman:
		if node.PromptMessage == "" {
			return types.NewValidationError("nodes",
				fmt.Sprintf("human node '%s' missing prompt_message", node.ID))
		}
	case types.NodePassthrough:
		// no required fields
	default:
		return types.NewValidationError("nodes",
			fmt.Sprintf("node '%s' has unknown type: %s", node.ID, node.Type))
	}
	return nil
}

// CheckWorkflow returns the structured {valid, error} form used at the
// external boundary.
func CheckWorkflow(def *types.WorkflowDefinition) types.ValidationResult {
	if err := ValidateWorkflow(def); err != nil {
		return types.ValidationResult{Valid: false, Error: err.Error()}
	}
	return types.ValidationResult{Valid: true}
}

// CheckGraph returns the structured {valid, error} form for graphs
func CheckGraph(def *types.GraphDefinition) types.ValidationResult {
	if err := ValidateGraph(def); err != nil {
		return types.ValidationResult{Valid: false, Error: err.Error()}
	}
	return types.ValidationResult{Valid: true}
}
