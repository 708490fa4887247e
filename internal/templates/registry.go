// ABOUTME: Registry of parameterized workflow templates
// ABOUTME: Applies parameter defaults, coerces types, and renders validated definitions

package templates

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

// Parameter describes one template parameter. A parameter with no
// default is required.
type Parameter struct {
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Required reports whether the parameter must be supplied by the caller
func (p Parameter) Required() bool {
	return p.Default == nil
}

// RenderFunc builds a workflow definition from resolved parameters
type RenderFunc func(params map[string]any) *types.WorkflowDefinition

// Template is a parameterized factory for workflow definitions
type Template struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Category    string               `json:"category"`
	Version     string               `json:"version,omitempty"`
	Parameters  map[string]Parameter `json:"parameters"`
	Render      RenderFunc           `json:"-"`
}

// MissingParameterError reports a required parameter the caller omitted
type MissingParameterError struct {
	TemplateID string
	Parameter  string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template '%s': missing required parameter: %s", e.TemplateID, e.Parameter)
}

// ParameterTypeError reports a parameter value of the wrong type
type ParameterTypeError struct {
	TemplateID string
	Parameter  string
	Expected   string
	Value      any
}

func (e *ParameterTypeError) Error() string {
	return fmt.Sprintf("template '%s': parameter '%s' must be %s, got %T",
		e.TemplateID, e.Parameter, e.Expected, e.Value)
}

// Registry stores workflow templates by id
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// New creates a registry pre-loaded with the built-in templates
func New() *Registry {
	r := &Registry{templates: make(map[string]*Template)}
	for _, tmpl := range builtinTemplates() {
		r.templates[tmpl.ID] = tmpl
	}
	return r
}

// Register adds or replaces a template
func (r *Registry) Register(tmpl *Template) error {
	if tmpl == nil || tmpl.ID == "" {
		return types.NewValidationError("template_id", "template id is required")
	}
	if tmpl.Render == nil {
		return types.NewValidationError("render", "template must have a render function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tmpl.ID] = tmpl
	return nil
}

// Get returns a template by id
func (r *Registry) Get(templateID string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, exists := r.templates[templateID]
	if !exists {
		return nil, types.NewNotFoundError("template", templateID)
	}
	return tmpl, nil
}

// List returns all templates, optionally filtered by category, sorted
// by id.
func (r *Registry) List(category string) []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]*Template, 0, len(r.templates))
	for _, tmpl := range r.templates {
		if category != "" && tmpl.Category != category {
			continue
		}
		templates = append(templates, tmpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates
}

// Categories returns the distinct template categories, sorted
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, tmpl := range r.templates {
		seen[tmpl.Category] = true
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Instantiate renders a template with the given parameters. Defaults
// fill omitted parameters, required parameters must be present, and
// values are coerced to the declared type. The rendered definition is
// validated before being returned.
func (r *Registry) Instantiate(templateID string, params map[string]any) (*types.WorkflowDefinition, error) {
	tmpl, err := r.Get(templateID)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]any, len(tmpl.Parameters))
	for name, param := range tmpl.Parameters {
		value, provided := params[name]
		if !provided {
			if param.Required() {
				return nil, &MissingParameterError{TemplateID: templateID, Parameter: name}
			}
			resolved[name] = param.Default
			continue
		}

		coerced, err := coerce(value, param.Type)
		if err != nil {
			return nil, &ParameterTypeError{
				TemplateID: templateID,
				Parameter:  name,
				Expected:   param.Type,
				Value:      value,
			}
		}
		resolved[name] = coerced
	}

	def := tmpl.Render(resolved)
	if err := validator.ValidateWorkflow(def); err != nil {
		return nil, fmt.Errorf("template '%s' rendered an invalid definition: %w", templateID, err)
	}
	return def, nil
}

// coerce converts a parameter value to its declared type. JSON
// transports numbers as float64, so integer parameters accept whole
// floats.
func coerce(value any, paramType string) (any, error) {
	switch paramType {
	case "integer":
		return cast.ToIntE(value)
	case "number":
		return cast.ToFloat64E(value)
	case "boolean":
		return cast.ToBoolE(value)
	case "string":
		return cast.ToStringE(value)
	case "array":
		if _, ok := value.([]any); !ok {
			return nil, fmt.Errorf("not an array")
		}
		return value, nil
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return nil, fmt.Errorf("not an object")
		}
		return value, nil
	default:
		return value, nil
	}
}
