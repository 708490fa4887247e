// ABOUTME: Executor for task types served by external document and LLM services
// ABOUTME: Forwards inputs to a configured endpoint, or reports the missing service

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Task forwards an externally-served task type (PDF extraction, OCR,
// format conversion, LLM chat) to its service endpoint.
type Task struct {
	taskType string
	endpoint string
	client   *http.Client
}

// New creates a remote task executor. An empty endpoint leaves the
// type declared but unserved.
func New(taskType, endpoint string, client *http.Client) *Task {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Task{taskType: taskType, endpoint: endpoint, client: client}
}

// Execute posts the task inputs to the configured service and adopts
// its JSON response as the task output.
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if t.endpoint == "" {
		return nil, fmt.Errorf("task type '%s' requires an external service; no endpoint configured", t.taskType)
	}

	body, err := json.Marshal(map[string]any{
		"task":   t.taskType,
		"inputs": inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode task request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := t.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("service for '%s' returned status %d", t.taskType, response.StatusCode)
	}

	var result map[string]any
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("service for '%s' returned invalid JSON: %w", t.taskType, err)
	}
	return result, nil
}
