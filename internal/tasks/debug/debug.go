// ABOUTME: Debug task logging a message and echoing its inputs
// ABOUTME: Useful for workflow development and pipeline tracing

package debug

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// Task logs templated messages during workflow execution
type Task struct {
	logger zerolog.Logger
}

// New creates a debug task executor
func New(logger zerolog.Logger) *Task {
	return &Task{logger: logger}
}

// Execute logs the message and returns it so later tasks can reference
// it.
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	message := cast.ToString(inputs["message"])

	event := t.logger.Info().Str("task", "debug")
	for key, value := range inputs {
		if key != "message" {
			event = event.Interface(key, value)
		}
	}
	event.Msg(message)

	return map[string]any{"message": message}, nil
}
