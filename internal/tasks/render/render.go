// ABOUTME: Template rendering task
// ABOUTME: Evaluates a Sprig-enabled template against supplied data

package render

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/loferris/artificer/internal/template"
)

// Task renders templates with the shared template engine
type Task struct {
	engine *template.Engine
}

// New creates a render task executor
func New(engine *template.Engine) *Task {
	if engine == nil {
		engine = template.New()
	}
	return &Task{engine: engine}
}

// Execute renders inputs["template"] against inputs["data"]
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	templateStr := cast.ToString(inputs["template"])
	if templateStr == "" {
		return nil, fmt.Errorf("render_template requires a 'template' input")
	}

	data, _ := inputs["data"].(map[string]any)

	rendered, err := t.engine.Evaluate(templateStr, data)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"rendered": rendered,
		"length":   len(rendered),
	}, nil
}
