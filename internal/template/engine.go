// ABOUTME: Template engine with Sprig function integration
// ABOUTME: Evaluates restricted text templates over state and input data

package template

import (
	"bytes"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/loferris/artificer/pkg/types"
)

// Engine evaluates text templates over a data map. Templates are the
// engine's replacement for arbitrary code execution in graph nodes:
// they are pure, side-effect-free expressions over the data they are
// given (conditional routing, inline tool results, rendered output).
type Engine struct {
	funcMap template.FuncMap
}

// New creates a new template engine with Sprig functions
func New() *Engine {
	engine := &Engine{funcMap: make(template.FuncMap)}

	for name, fn := range sprig.TxtFuncMap() {
		engine.funcMap[name] = fn
	}
	engine.addCustomFunctions()

	return engine
}

// addCustomFunctions adds engine-specific template functions
func (e *Engine) addCustomFunctions() {
	customFuncs := template.FuncMap{
		"env": func(name string, defaultValue ...string) string {
			if value := os.Getenv(name); value != "" {
				return value
			}
			if len(defaultValue) > 0 {
				return defaultValue[0]
			}
			return ""
		},

		"hostname": func() string {
			if hostname, err := os.Hostname(); err == nil {
				return hostname
			}
			return "unknown"
		},

		"timestamp": func() string {
			return time.Now().Format(time.RFC3339)
		},

		"unixTimestamp": func() int64 {
			return time.Now().Unix()
		},
	}

	for name, fn := range customFuncs {
		e.funcMap[name] = fn
	}
}

// Evaluate evaluates a template string with the given data. Strings
// without template syntax pass through unchanged. Missing keys are
// errors; callers provide fully-defaulted data.
func (e *Engine) Evaluate(templateStr string, data map[string]any) (string, error) {
	if templateStr == "" {
		return "", nil
	}
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.New("template").
		Option("missingkey=error").
		Funcs(e.funcMap).
		Parse(templateStr)
	if err != nil {
		return "", types.NewValidationError("template", "failed to parse template: "+err.Error())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", types.NewExecutionError("", "template", "failed to execute template", err)
	}

	return buf.String(), nil
}

// EvaluateAll evaluates every string value in a map, leaving other
// values untouched. Nested maps are evaluated recursively.
func (e *Engine) EvaluateAll(values map[string]any, data map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(values))
	for key, value := range values {
		switch v := value.(type) {
		case string:
			evaluated, err := e.Evaluate(v, data)
			if err != nil {
				return nil, err
			}
			result[key] = evaluated
		case map[string]any:
			nested, err := e.EvaluateAll(v, data)
			if err != nil {
				return nil, err
			}
			result[key] = nested
		default:
			result[key] = value
		}
	}
	return result, nil
}

// Validate checks that a template string parses without executing it
func (e *Engine) Validate(templateStr string) error {
	if templateStr == "" || !strings.Contains(templateStr, "{{") {
		return nil
	}
	_, err := template.New("template").Funcs(e.funcMap).Parse(templateStr)
	if err != nil {
		return types.NewValidationError("template", "invalid template: "+err.Error())
	}
	return nil
}
