// ABOUTME: HTTP callout task for invoking external service endpoints
// ABOUTME: Sends JSON requests and decodes JSON or text responses

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const defaultTimeout = 30 * time.Second

// Task performs HTTP calls to external services
type Task struct {
	client *http.Client
}

// New creates a webhook task executor
func New(client *http.Client) *Task {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Task{client: client}
}

// Execute calls inputs["url"] with optional method, headers, and JSON
// body. Non-2xx responses are task failures, which makes the DAG
// layer's retry budget apply.
func (t *Task) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	url := cast.ToString(inputs["url"])
	if url == "" {
		return nil, fmt.Errorf("webhook_call requires a 'url' input")
	}

	method := strings.ToUpper(cast.ToString(inputs["method"]))
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if raw, present := inputs["body"]; present && raw != nil {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if headers, ok := inputs["headers"].(map[string]any); ok {
		for key, value := range headers {
			request.Header.Set(key, cast.ToString(value))
		}
	}

	response, err := t.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(response.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook call to %s returned status %d", url, response.StatusCode)
	}

	result := map[string]any{"status": response.StatusCode}

	var decoded map[string]any
	if json.Unmarshal(payload, &decoded) == nil {
		result["response"] = decoded
	} else {
		result["response"] = string(payload)
	}
	return result, nil
}
