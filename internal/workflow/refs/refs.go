// ABOUTME: Reference resolver for workflow input and task output placeholders
// ABOUTME: Resolves {{workflow.input.X}} and {{task.field}} strings at task launch

package refs

import (
	"strings"

	"github.com/loferris/artificer/pkg/types"
)

// WorkflowInputPrefix marks references into the workflow input map
const WorkflowInputPrefix = "workflow.input."

// Reference is a parsed {{...}} placeholder
type Reference struct {
	// Raw is the original string including braces
	Raw string

	// WorkflowInput is true for workflow.input.* references
	WorkflowInput bool

	// Key is the input key for workflow.input references
	Key string

	// TaskID is the source task for task output references
	TaskID string

	// Path is the field path within the task output, outermost first
	Path []string
}

// IsReference reports whether a value is a reference placeholder.
// Anything that is not a string wrapped in {{ }} is a literal.
func IsReference(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}")
}

// Parse parses a reference placeholder. The second return is false
// when the value is not a reference at all.
func Parse(value any) (Reference, bool) {
	if !IsReference(value) {
		return Reference{}, false
	}

	s := strings.TrimSpace(value.(string))
	inner := strings.TrimSpace(s[2 : len(s)-2])

	ref := Reference{Raw: s}
	if strings.HasPrefix(inner, WorkflowInputPrefix) {
		ref.WorkflowInput = true
		ref.Key = inner[len(WorkflowInputPrefix):]
		return ref, true
	}

	parts := strings.Split(inner, ".")
	ref.TaskID = parts[0]
	if len(parts) > 1 {
		ref.Path = parts[1:]
	}
	return ref, true
}

// Resolver resolves references against workflow inputs and completed
// task results. By default missing keys resolve to nil and the task
// decides how to handle them; Strict fails fast instead.
type Resolver struct {
	Strict bool
}

// Resolve resolves a single value. Literals pass through unchanged;
// references are looked up in the inputs or results maps. Missing keys
// yield nil unless Strict is set.
func (r *Resolver) Resolve(value any, inputs map[string]any, results map[string]map[string]any) (any, error) {
	ref, ok := Parse(value)
	if !ok {
		return value, nil
	}

	if ref.WorkflowInput {
		resolved, found := inputs[ref.Key]
		if !found && r.Strict {
			return nil, types.NewReferenceError(ref.Raw, "workflow input not provided: "+ref.Key)
		}
		return resolved, nil
	}

	result, found := results[ref.TaskID]
	if !found {
		if r.Strict {
			return nil, types.NewReferenceError(ref.Raw, "no result for task: "+ref.TaskID)
		}
		return nil, nil
	}

	// Walk the field path through nested objects
	var current any = map[string]any(result)
	for _, field := range ref.Path {
		obj, isMap := current.(map[string]any)
		if !isMap {
			if r.Strict {
				return nil, types.NewReferenceError(ref.Raw, "cannot descend into non-object at field: "+field)
			}
			return nil, nil
		}
		next, exists := obj[field]
		if !exists {
			if r.Strict {
				return nil, types.NewReferenceError(ref.Raw, "missing field: "+field)
			}
			return nil, nil
		}
		current = next
	}

	// A bare {{task_id}} reference yields the whole output object
	return current, nil
}

// ResolveMap resolves every value in an input map, mixing literals and
// references freely. Nested maps and arrays are resolved recursively.
func (r *Resolver) ResolveMap(values map[string]any, inputs map[string]any, results map[string]map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(values))
	for key, value := range values {
		v, err := r.resolveValue(value, inputs, results)
		if err != nil {
			return nil, err
		}
		resolved[key] = v
	}
	return resolved, nil
}

func (r *Resolver) resolveValue(value any, inputs map[string]any, results map[string]map[string]any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return r.ResolveMap(v, inputs, results)
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			item, err := r.resolveValue(item, inputs, results)
			if err != nil {
				return nil, err
			}
			resolved[i] = item
		}
		return resolved, nil
	default:
		return r.Resolve(value, inputs, results)
	}
}

// ResolveOutput resolves a workflow output mapping against results
func (r *Resolver) ResolveOutput(output map[string]string, inputs map[string]any, results map[string]map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(output))
	for key, reference := range output {
		v, err := r.Resolve(reference, inputs, results)
		if err != nil {
			return nil, err
		}
		resolved[key] = v
	}
	return resolved, nil
}
