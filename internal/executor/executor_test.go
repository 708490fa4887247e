// ABOUTME: Tests for the DAG executor
// ABOUTME: Covers sequential chains, parallel layers, retry, cancellation, and progress

package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loferris/artificer/pkg/types"
)

// stubRunner is a scriptable task runner for tests
type stubRunner struct {
	mu      sync.Mutex
	handler func(taskType string, inputs map[string]any) (map[string]any, error)
	calls   []string
}

func (s *stubRunner) Execute(ctx context.Context, taskType string, inputs map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, taskType)
	s.mu.Unlock()
	return s.handler(taskType, inputs)
}

func (s *stubRunner) Has(taskType string) bool { return true }
func (s *stubRunner) Types() []string          { return nil }

func newExecutor(t *testing.T, runner types.TaskRunner) *Executor {
	t.Helper()
	exec, err := New(&Config{Runner: runner})
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}
	return exec
}

func TestExecute_SequentialChain(t *testing.T) {
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		switch taskType {
		case "extract":
			if inputs["pdf"] != "X" {
				return nil, fmt.Errorf("unexpected input: %v", inputs["pdf"])
			}
			return map[string]any{"text": "T"}, nil
		case "chunk":
			if inputs["content"] != "T" {
				return nil, fmt.Errorf("dependency output not visible: %v", inputs["content"])
			}
			return map[string]any{"chunks": []any{"c1", "c2"}}, nil
		}
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}}

	def := &types.WorkflowDefinition{
		Name: "extract-then-chunk",
		Tasks: []types.TaskDefinition{
			{ID: "extract", Type: "extract", Inputs: map[string]any{"pdf": "{{workflow.input.pdf}}"}},
			{ID: "chunk", Type: "chunk", DependsOn: []string{"extract"},
				Inputs: map[string]any{"content": "{{extract.text}}"}},
		},
		Output:  map[string]string{"chunks": "{{chunk.chunks}}"},
		Options: types.WorkflowOptions{Parallel: false},
	}

	output, err := newExecutor(t, runner).Execute(context.Background(), def, map[string]any{"pdf": "X"}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	chunks, ok := output["chunks"].([]any)
	if !ok || len(chunks) != 2 || chunks[0] != "c1" {
		t.Errorf("Unexpected output: %v", output)
	}
}

func TestExecute_ParallelLayerRunsConcurrently(t *testing.T) {
	const delay = 50 * time.Millisecond

	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		time.Sleep(delay)
		return map[string]any{"done": taskType}, nil
	}}

	def := &types.WorkflowDefinition{
		Name: "fanout",
		Tasks: []types.TaskDefinition{
			{ID: "extract", Type: "extract", Inputs: map[string]any{}},
			{ID: "a", Type: "a", DependsOn: []string{"extract"}, Inputs: map[string]any{}},
			{ID: "b", Type: "b", DependsOn: []string{"extract"}, Inputs: map[string]any{}},
			{ID: "c", Type: "c", DependsOn: []string{"extract"}, Inputs: map[string]any{}},
		},
		Options: types.WorkflowOptions{Parallel: true},
	}

	started := time.Now()
	if _, err := newExecutor(t, runner).Execute(context.Background(), def, nil, nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	elapsed := time.Since(started)

	// Two layers of ~50ms each; sequential would be ~200ms
	if elapsed > 3*delay {
		t.Errorf("Expected parallel execution (~%v), took %v", 2*delay, elapsed)
	}
}

func TestExecute_NoOutputMappingReturnsAllResults(t *testing.T) {
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"value": taskType}, nil
	}}

	def := &types.WorkflowDefinition{
		Name: "all-results",
		Tasks: []types.TaskDefinition{
			{ID: "one", Type: "one", Inputs: map[string]any{}},
		},
	}

	output, err := newExecutor(t, runner).Execute(context.Background(), def, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	result, ok := output["one"].(map[string]any)
	if !ok || result["value"] != "one" {
		t.Errorf("Unexpected output: %v", output)
	}
}

func TestExecute_RetryExhaustionFailsWorkflow(t *testing.T) {
	var attempts atomic.Int32
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		attempts.Add(1)
		return nil, errors.New("boom")
	}}

	def := &types.WorkflowDefinition{
		Name: "flaky",
		Tasks: []types.TaskDefinition{
			{ID: "boom", Type: "boom", Retry: 2, Inputs: map[string]any{}},
		},
	}

	_, err := newExecutor(t, runner).Execute(context.Background(), def, nil, nil)
	if err == nil {
		t.Fatal("Expected failure after retries")
	}
	var execErr *types.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("Expected ExecutionError, got %T", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", attempts.Load())
	}
}

func TestExecute_RetrySucceedsOnLaterAttempt(t *testing.T) {
	var attempts atomic.Int32
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		return map[string]any{"ok": true}, nil
	}}

	def := &types.WorkflowDefinition{
		Name: "eventually",
		Tasks: []types.TaskDefinition{
			{ID: "t", Type: "t", Retry: 3, Inputs: map[string]any{}},
		},
		Output: map[string]string{"ok": "{{t.ok}}"},
	}

	output, err := newExecutor(t, runner).Execute(context.Background(), def, nil, nil)
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if output["ok"] != true {
		t.Errorf("Unexpected output: %v", output)
	}
}

func TestExecute_MissingInputResolvesToNilAndTaskRuns(t *testing.T) {
	var sawNil bool
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		if inputs["missing"] == nil {
			sawNil = true
		}
		return map[string]any{}, nil
	}}

	def := &types.WorkflowDefinition{
		Name: "lenient",
		Tasks: []types.TaskDefinition{
			{ID: "t", Type: "t", Inputs: map[string]any{"missing": "{{workflow.input.missing}}"}},
		},
	}

	if _, err := newExecutor(t, runner).Execute(context.Background(), def, map[string]any{}, nil); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !sawNil {
		t.Error("Expected task to run with nil input")
	}
}

func TestExecute_CancellationBetweenTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var completed atomic.Int32
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		n := completed.Add(1)
		if n == 3 {
			cancel()
		}
		return map[string]any{"n": n}, nil
	}}

	tasks := make([]types.TaskDefinition, 10)
	for i := range tasks {
		tasks[i] = types.TaskDefinition{
			ID:     fmt.Sprintf("t%d", i),
			Type:   "step",
			Inputs: map[string]any{},
		}
		if i > 0 {
			tasks[i].DependsOn = []string{fmt.Sprintf("t%d", i-1)}
		}
	}

	def := &types.WorkflowDefinition{Name: "chain", Tasks: tasks}

	_, err := newExecutor(t, runner).Execute(ctx, def, nil, nil)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}

	var cancelled *CancelledError
	if !errors.As(err, &cancelled) {
		t.Fatalf("Expected CancelledError, got %T: %v", err, err)
	}
	if cancelled.Completed != 3 {
		t.Errorf("Expected 3 completed tasks, got %d", cancelled.Completed)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("Expected CancelledError to unwrap to context.Canceled")
	}
}

func TestExecute_ProgressUpdates(t *testing.T) {
	runner := &stubRunner{handler: func(taskType string, inputs map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}}

	def := &types.WorkflowDefinition{
		Name: "progress",
		Tasks: []types.TaskDefinition{
			{ID: "a", Type: "a", Inputs: map[string]any{}},
			{ID: "b", Type: "b", DependsOn: []string{"a"}, Inputs: map[string]any{}},
		},
	}

	var updates []types.Progress
	progress := func(p types.Progress) { updates = append(updates, p) }

	if _, err := newExecutor(t, runner).Execute(context.Background(), def, nil, progress); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("Expected 2 progress updates, got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Current != 2 || last.Total != 2 || last.Percent != 100 {
		t.Errorf("Unexpected final progress: %+v", last)
	}
}
