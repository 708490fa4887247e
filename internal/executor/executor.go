// ABOUTME: DAG executor running workflow tasks in topological layers
// ABOUTME: Handles parallel and sequential layer execution, per-task retry, and progress

package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/internal/workflow/refs"
	"github.com/loferris/artificer/internal/workflow/resolver"
	"github.com/loferris/artificer/pkg/types"
)

// CancelledError reports a cancelled execution. Partial carries the
// results of tasks that completed before the cancellation was
// observed, for debugging; the workflow produces no output.
type CancelledError struct {
	Completed int
	Partial   map[string]map[string]any
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("execution cancelled after %d completed tasks", e.Completed)
}

func (e *CancelledError) Unwrap() error {
	return context.Canceled
}

// Executor runs validated workflow definitions against a task runner
type Executor struct {
	runner         types.TaskRunner
	resolver       *refs.Resolver
	logger         zerolog.Logger
	maxConcurrency int
}

// Config holds executor configuration
type Config struct {
	Runner         types.TaskRunner
	Logger         *zerolog.Logger
	MaxConcurrency int
	StrictRefs     bool
}

// New creates a new DAG executor
func New(config *Config) (*Executor, error) {
	if config == nil || config.Runner == nil {
		return nil, fmt.Errorf("executor requires a task runner")
	}

	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}

	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Executor{
		runner:         config.Runner,
		resolver:       &refs.Resolver{Strict: config.StrictRefs},
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}, nil
}

// Execute runs a validated workflow. Tasks execute in topological
// layers; inside a layer, execution is concurrent when
// options.parallel is set and sequential in declared order otherwise.
// Cancellation is observed between tasks, never mid-task.
func (e *Executor) Execute(ctx context.Context, def *types.WorkflowDefinition, inputs map[string]any, progress types.ProgressFunc) (map[string]any, error) {
	deps := resolver.New()
	if err := deps.BuildGraph(def.Tasks); err != nil {
		return nil, err
	}
	layers, err := deps.Layers()
	if err != nil {
		return nil, err
	}

	run := &runState{
		inputs:  inputs,
		total:   len(def.Tasks),
		results: make(map[string]map[string]any, len(def.Tasks)),
	}

	e.logger.Info().
		Str("workflow", def.Name).
		Int("tasks", run.total).
		Int("layers", len(layers)).
		Bool("parallel", def.Options.Parallel).
		Msg("Starting workflow execution")

	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return nil, run.cancelled()
		}

		if def.Options.Parallel {
			err = e.executeLayerParallel(ctx, def, layer, run, progress)
		} else {
			err = e.executeLayerSequential(ctx, def, layer, run, progress)
		}
		if err != nil {
			return nil, err
		}
	}

	output, err := e.resolver.ResolveOutput(def.Output, inputs, run.results)
	if err != nil {
		return nil, err
	}

	// With no output mapping declared, all task results are returned
	if len(output) == 0 {
		output = make(map[string]any, len(run.results))
		for id, result := range run.results {
			output[id] = result
		}
	}

	e.logger.Info().Str("workflow", def.Name).Msg("Workflow execution completed")
	return output, nil
}

// runState tracks workflow inputs and completed task results for one
// execution
type runState struct {
	mu        sync.Mutex
	inputs    map[string]any
	total     int
	completed int
	results   map[string]map[string]any
}

func (r *runState) record(taskID string, result map[string]any) (completed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[taskID] = result
	r.completed++
	return r.completed, r.total
}

func (r *runState) snapshot() map[string]map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	partial := make(map[string]map[string]any, len(r.results))
	for id, result := range r.results {
		partial[id] = result
	}
	return partial
}

func (r *runState) cancelled() *CancelledError {
	partial := r.snapshot()
	return &CancelledError{Completed: len(partial), Partial: partial}
}

// executeLayerSequential runs layer tasks one at a time in declared
// order, observing cancellation between tasks.
func (e *Executor) executeLayerSequential(ctx context.Context, def *types.WorkflowDefinition, layer *resolver.ExecutionLayer, run *runState, progress types.ProgressFunc) error {
	for _, node := range layer.Tasks {
		if err := ctx.Err(); err != nil {
			return run.cancelled()
		}
		if err := e.runTask(ctx, def, node.Task, run, progress); err != nil {
			return err
		}
	}
	return nil
}

// executeLayerParallel launches every task in the layer concurrently,
// bounded by the executor's concurrency limit, and awaits the layer.
func (e *Executor) executeLayerParallel(ctx context.Context, def *types.WorkflowDefinition, layer *resolver.ExecutionLayer, run *runState, progress types.ProgressFunc) error {
	semaphore := make(chan struct{}, e.maxConcurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, node := range layer.Tasks {
		wg.Add(1)

		go func(task *types.TaskDefinition) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			mu.Lock()
			stop := firstErr != nil
			mu.Unlock()
			if stop || ctx.Err() != nil {
				return
			}

			if err := e.runTask(ctx, def, task, run, progress); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(node.Task)
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if ctx.Err() != nil {
		return run.cancelled()
	}
	return nil
}

// runTask resolves a task's inputs against prior results and invokes
// the task runner, retrying up to the task's retry budget. Retries are
// immediate; backoff for whole-job retries belongs to the job manager.
func (e *Executor) runTask(ctx context.Context, def *types.WorkflowDefinition, task *types.TaskDefinition, run *runState, progress types.ProgressFunc) error {
	resolved, err := e.resolver.ResolveMap(task.Inputs, run.inputs, run.snapshot())
	if err != nil {
		return types.NewExecutionError(task.ID, task.Type, "failed to resolve inputs", err)
	}

	attempts := task.Retry
	if attempts == 0 && def.Options.RetryFailedTasks {
		attempts = def.Options.MaxRetries
	}
	if attempts < 0 {
		attempts = 0
	}

	taskCtx := ctx
	var cancel context.CancelFunc
	if task.TimeoutMS > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, time.Duration(task.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	var result map[string]any
	var lastErr error

	for attempt := 0; attempt <= attempts; attempt++ {
		result, lastErr = e.runner.Execute(taskCtx, task.Type, resolved)
		if lastErr == nil {
			break
		}
		if taskCtx.Err() != nil {
			// The task was interrupted, not failed; no point retrying
			break
		}
		if attempt < attempts {
			e.logger.Warn().
				Str("task_id", task.ID).
				Str("task_type", task.Type).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("Task failed, retrying")
		}
	}

	if lastErr != nil {
		e.logger.Error().
			Str("task_id", task.ID).
			Str("task_type", task.Type).
			Dur("duration", time.Since(started)).
			Err(lastErr).
			Msg("Task failed")
		return types.NewExecutionError(task.ID, task.Type, "task execution failed", lastErr)
	}

	completed, total := run.record(task.ID, result)

	e.logger.Debug().
		Str("task_id", task.ID).
		Str("task_type", task.Type).
		Dur("duration", time.Since(started)).
		Int("completed", completed).
		Msg("Task completed")

	if progress != nil {
		progress(types.NewProgress(completed, total, fmt.Sprintf("completed task %s", task.ID)))
	}
	return nil
}
