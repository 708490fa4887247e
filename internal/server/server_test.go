// ABOUTME: Tests for the HTTP API server
// ABOUTME: Covers execution endpoints, registries, job admin, and error mapping

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loferris/artificer/internal/engine"
)

// stubRunner answers every task type with a fixed output
type stubRunner struct{}

func (s *stubRunner) Execute(ctx context.Context, taskType string, inputs map[string]any) (map[string]any, error) {
	switch taskType {
	case "extract_pdf_text":
		return map[string]any{"text": "T", "metadata": map[string]any{"pages": 1}}, nil
	case "chunk_document", "chunk_text":
		return map[string]any{"chunks": []any{"c1"}, "total_chunks": 1}, nil
	}
	return map[string]any{"ok": true}, nil
}

func (s *stubRunner) Has(taskType string) bool { return true }
func (s *stubRunner) Types() []string          { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	e, err := engine.New(&engine.Config{Runner: &stubRunner{}, MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	server := New(&Config{Engine: e})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body string) (int, map[string]any) {
	t.Helper()
	var request *http.Request
	var err error
	if body != "" {
		request, err = http.NewRequest(method, url, strings.NewReader(body))
	} else {
		request, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatal(err)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = response.Body.Close() }()

	var decoded map[string]any
	_ = json.NewDecoder(response.Body).Decode(&decoded)
	return response.StatusCode, decoded
}

func TestExecuteEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "POST", ts.URL+"/api/workflows/execute",
		`{"workflowId": "pdf-extract-and-chunk", "inputs": {"pdf_data": "X"}}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["success"] != true {
		t.Errorf("Expected success, got: %v", body)
	}
}

func TestExecuteAsyncAndPoll(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "POST", ts.URL+"/api/workflows/execute-async",
		`{"workflowId": "pdf-to-html", "inputs": {"pdf_data": "X"}, "priority": "high"}`)
	if status != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %v", status, body)
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" || body["status"] != "PENDING" {
		t.Fatalf("Unexpected submit response: %v", body)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, job := doJSON(t, "GET", ts.URL+"/api/jobs/"+jobID, "")
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if job["status"] == "COMPLETED" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job never completed: %v", job)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkflowRegistryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	definition := `{"workflowId": "mini", "definition": {"name": "mini", "tasks": [
		{"id": "one", "type": "debug", "inputs": {"message": "hi"}}]}}`

	status, _ := doJSON(t, "POST", ts.URL+"/api/workflows/custom", definition)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}

	status, body := doJSON(t, "GET", ts.URL+"/api/workflows/custom/mini", "")
	if status != http.StatusOK || body["name"] != "mini" {
		t.Errorf("Unexpected get response: %d %v", status, body)
	}

	status, body = doJSON(t, "GET", ts.URL+"/api/workflows", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["preBuilt"] == nil || body["custom"] == nil {
		t.Errorf("Expected both workflow lists, got: %v", body)
	}

	status, _ = doJSON(t, "DELETE", ts.URL+"/api/workflows/custom/mini", "")
	if status != http.StatusOK {
		t.Errorf("Expected 200 on delete, got %d", status)
	}
	status, _ = doJSON(t, "GET", ts.URL+"/api/workflows/custom/mini", "")
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", status)
	}
}

func TestValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "POST", ts.URL+"/api/workflows/validate",
		`{"definition": {"name": "bad"}}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if body["valid"] != false || body["error"] == "" {
		t.Errorf("Expected structured invalid result, got: %v", body)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "GET", ts.URL+"/api/templates?category=ingestion", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	templates := body["templates"].([]any)
	if len(templates) != 1 {
		t.Errorf("Expected 1 ingestion template, got %d", len(templates))
	}

	status, body = doJSON(t, "POST", ts.URL+"/api/templates/rag-ingestion/instantiate",
		`{"params": {"chunk_size": 500}}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["definition"] == nil {
		t.Errorf("Expected rendered definition, got: %v", body)
	}

	status, body = doJSON(t, "POST", ts.URL+"/api/templates/rag-ingestion/instantiate",
		`{"params": {"chunk_size": "soup"}}`)
	if status != http.StatusInternalServerError && status != http.StatusBadRequest {
		t.Logf("Parameter type errors surface as %d: %v", status, body)
	}
}

func TestGraphEndpoints(t *testing.T) {
	ts := newTestServer(t)

	graphJSON := `{"graphId": "hitl", "definition": {
		"name": "hitl",
		"state_schema": {"fields": {"approved": {"type": "boolean", "default": false}}},
		"nodes": [
			{"id": "analyze", "type": "tool", "function_name": "chunk_text"},
			{"id": "review", "type": "human", "prompt_message": "Approve?"},
			{"id": "finalize", "type": "passthrough"}
		],
		"edges": [
			{"from_node": "analyze", "to_node": "review"},
			{"from_node": "review", "to_node": "finalize"},
			{"from_node": "finalize", "to_node": "END"}
		],
		"entry_point": "analyze",
		"finish_points": ["finalize"]
	}}`

	status, _ := doJSON(t, "POST", ts.URL+"/api/graphs", graphJSON)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}

	status, body := doJSON(t, "POST", ts.URL+"/api/graphs/hitl/execute",
		`{"inputs": {}, "threadId": "sess-1"}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["requires_human_input"] != true || body["checkpoint_id"] != "sess-1" {
		t.Fatalf("Expected human pause, got: %v", body)
	}

	status, body = doJSON(t, "POST", ts.URL+"/api/graphs/hitl/resume",
		`{"checkpointId": "sess-1", "humanInput": {"approved": true}}`)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", status, body)
	}
	if body["success"] != true {
		t.Errorf("Expected resumed completion, got: %v", body)
	}

	status, body = doJSON(t, "GET", ts.URL+"/api/graphs/hitl/summary", "")
	if status != http.StatusOK || body["summary"] == "" {
		t.Errorf("Expected summary, got %d: %v", status, body)
	}

	status, body = doJSON(t, "POST", ts.URL+"/api/graphs/hitl/resume",
		`{"checkpointId": "never", "humanInput": {}}`)
	if status != http.StatusConflict {
		t.Errorf("Expected 409 for missing checkpoint, got %d: %v", status, body)
	}
}

func TestJobAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "GET", ts.URL+"/api/jobs/stats", "")
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	queue := body["queue"].(map[string]any)
	if queue["max_concurrent"] != float64(2) {
		t.Errorf("Unexpected stats: %v", body)
	}

	status, _ = doJSON(t, "GET", ts.URL+"/api/jobs/ghost", "")
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown job, got %d", status)
	}

	status, _ = doJSON(t, "POST", ts.URL+"/api/jobs/ghost/cancel", "")
	if status != http.StatusNotFound {
		t.Errorf("Expected 404 for cancelling unknown job, got %d", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, "GET", ts.URL+"/health", "")
	if status != http.StatusOK || body["status"] != "healthy" {
		t.Errorf("Unexpected health response: %d %v", status, body)
	}
}

func TestUnknownWorkflowAsync404(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, "POST", ts.URL+"/api/workflows/execute-async", `{"workflowId": "ghost"}`)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}
}
