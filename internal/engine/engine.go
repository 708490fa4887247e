// ABOUTME: Engine facade wiring registries, executors, and the job manager
// ABOUTME: Single entry point behind the CLI and the HTTP API

package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/executor"
	"github.com/loferris/artificer/internal/graph"
	"github.com/loferris/artificer/internal/history"
	"github.com/loferris/artificer/internal/jobs"
	"github.com/loferris/artificer/internal/library"
	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/internal/tasks"
	"github.com/loferris/artificer/internal/template"
	"github.com/loferris/artificer/internal/templates"
	"github.com/loferris/artificer/internal/workflow/registry"
	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

// Config holds engine configuration
type Config struct {
	// Runner executes individual tasks; defaults to the built-in
	// registry with no remote endpoints.
	Runner types.TaskRunner

	MaxConcurrent  int
	MaxQueueLength int
	DefaultTimeout time.Duration
	StrictRefs     bool

	// Checkpoints overrides the in-memory graph checkpoint store
	Checkpoints graph.CheckpointStore

	// History, when set, records terminal jobs
	History *history.Store

	// WebhookDelays overrides the delivery retry schedule (tests)
	WebhookDelays []time.Duration

	Logger *zerolog.Logger
}

// Engine is the workflow execution engine facade
type Engine struct {
	library   *library.Library
	workflows *registry.Registry
	graphs    *graph.Registry
	templates *templates.Registry
	runner    types.TaskRunner
	executor  *executor.Executor
	manager   *jobs.Manager
	history   *history.Store
	defaults  time.Duration
	logger    zerolog.Logger
}

// New creates a fully wired engine
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = &Config{}
	}

	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	templateEngine := template.New()

	runner := config.Runner
	if runner == nil {
		runner = tasks.New(&tasks.Config{Templates: templateEngine, Logger: config.Logger})
	}

	dagExecutor, err := executor.New(&executor.Config{
		Runner:     runner,
		Logger:     config.Logger,
		StrictRefs: config.StrictRefs,
	})
	if err != nil {
		return nil, err
	}

	checkpoints := config.Checkpoints
	if checkpoints == nil {
		checkpoints = graph.NewMemoryStore()
	}

	defaultTimeout := config.DefaultTimeout
	if defaultTimeout <= 0 {
		defaultTimeout = jobs.DefaultTimeout
	}

	e := &Engine{
		library: library.New(),
		workflows: registry.New(),
		graphs: graph.NewRegistry(&graph.Config{
			Runner:      runner,
			Templates:   templateEngine,
			Checkpoints: checkpoints,
			Logger:      config.Logger,
		}),
		templates: templates.New(),
		runner:    runner,
		executor:  dagExecutor,
		history:   config.History,
		defaults:  defaultTimeout,
		logger:    logger,
	}

	manager, err := jobs.NewManager(&jobs.Config{
		MaxConcurrent:  config.MaxConcurrent,
		MaxQueueLength: config.MaxQueueLength,
		DefaultTimeout: defaultTimeout,
		Execute:        e.executeJob,
		Resume:         e.resumeJob,
		Webhooks: jobs.NewDispatcher(&jobs.DispatcherConfig{
			Delays: config.WebhookDelays,
			Logger: config.Logger,
		}),
		OnTerminal: e.recordTerminal,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, err
	}
	e.manager = manager

	return e, nil
}

// recordTerminal appends terminal jobs to the history store
func (e *Engine) recordTerminal(job *types.Job) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordJob(job); err != nil {
		e.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Failed to record job history")
	}
}

// ResolveWorkflow finds a workflow definition by reference: pre-built
// ids first, then custom registrations.
func (e *Engine) ResolveWorkflow(workflowID string) (*types.WorkflowDefinition, types.WorkflowType, error) {
	if e.library.Has(workflowID) {
		def, err := e.library.Get(workflowID)
		return def, types.WorkflowPreBuilt, err
	}
	if e.workflows.Has(workflowID) {
		def, err := e.workflows.Get(workflowID)
		return def, types.WorkflowCustom, err
	}
	return nil, "", types.NewNotFoundError("workflow", workflowID)
}

// Execute runs a workflow synchronously and blocks until terminal
func (e *Engine) Execute(ctx context.Context, workflowID string, inputs map[string]any) types.ExecutionResult {
	def, _, err := e.ResolveWorkflow(workflowID)
	if err != nil {
		return types.ExecutionResult{Success: false, Error: err.Error()}
	}
	return e.ExecuteDefinition(ctx, def, inputs)
}

// ExecuteDefinition runs an inline workflow definition synchronously
func (e *Engine) ExecuteDefinition(ctx context.Context, def *types.WorkflowDefinition, inputs map[string]any) types.ExecutionResult {
	if err := validator.ValidateWorkflow(def); err != nil {
		return types.ExecutionResult{Success: false, Error: err.Error()}
	}

	timeout := e.defaults
	if def.Options.TimeoutMS > 0 {
		timeout = time.Duration(def.Options.TimeoutMS) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := e.executor.Execute(ctx, def, inputs, nil)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = types.NewTimeoutError("workflow '"+def.Name+"'", timeout)
		}
		return types.ExecutionResult{Success: false, Error: err.Error()}
	}
	return types.ExecutionResult{Success: true, Result: result}
}

// ExecuteAsync submits a workflow or graph for background execution
func (e *Engine) ExecuteAsync(workflowID string, inputs map[string]any, opts *jobs.SubmitOptions) (*types.Job, error) {
	if opts == nil {
		opts = &jobs.SubmitOptions{}
	}

	if e.graphs.Has(workflowID) {
		return e.manager.Submit(workflowID, types.WorkflowGraph, inputs, opts)
	}

	def, workflowType, err := e.ResolveWorkflow(workflowID)
	if err != nil {
		return nil, err
	}
	if opts.TimeoutMS == 0 {
		opts.TimeoutMS = def.Options.TimeoutMS
	}
	return e.manager.Submit(workflowID, workflowType, inputs, opts)
}

// executeJob is the job manager's dispatch target
func (e *Engine) executeJob(ctx context.Context, job *types.Job, progress types.ProgressFunc) (*jobs.Outcome, error) {
	if job.WorkflowType == types.WorkflowGraph {
		graphExecutor, err := e.graphs.Get(job.WorkflowID)
		if err != nil {
			return nil, err
		}
		result, err := graphExecutor.Execute(ctx, job.Inputs, job.ID)
		if err != nil {
			return nil, err
		}
		if result.RequiresHumanInput {
			return &jobs.Outcome{Paused: true, CheckpointID: result.CheckpointID}, nil
		}
		return &jobs.Outcome{Result: result.FinalState}, nil
	}

	def, _, err := e.ResolveWorkflow(job.WorkflowID)
	if err != nil {
		return nil, err
	}
	result, err := e.executor.Execute(ctx, def, job.Inputs, progress)
	if err != nil {
		return nil, err
	}
	return &jobs.Outcome{Result: result}, nil
}

// resumeJob continues a paused graph job
func (e *Engine) resumeJob(ctx context.Context, job *types.Job, humanInput map[string]any, progress types.ProgressFunc) (*jobs.Outcome, error) {
	graphExecutor, err := e.graphs.Get(job.WorkflowID)
	if err != nil {
		return nil, err
	}
	result, err := graphExecutor.Resume(ctx, job.CheckpointID, humanInput)
	if err != nil {
		return nil, err
	}
	if result.RequiresHumanInput {
		return &jobs.Outcome{Paused: true, CheckpointID: result.CheckpointID}, nil
	}
	return &jobs.Outcome{Result: result.FinalState}, nil
}

// ExecuteGraph runs a registered graph synchronously
func (e *Engine) ExecuteGraph(ctx context.Context, graphID string, inputs map[string]any, threadID string) (*types.GraphResult, error) {
	graphExecutor, err := e.graphs.Get(graphID)
	if err != nil {
		return nil, err
	}
	return graphExecutor.Execute(ctx, inputs, threadID)
}

// ResumeGraph resumes a paused graph execution. When the checkpoint
// belongs to a paused job, the job is driven back through its
// lifecycle; otherwise the graph resumes directly.
func (e *Engine) ResumeGraph(ctx context.Context, graphID, checkpointID string, humanInput map[string]any) (*types.GraphResult, error) {
	if job, ok := e.manager.FindByCheckpoint(checkpointID); ok && job.WorkflowID == graphID {
		resumed, err := e.manager.Resume(job.ID, humanInput)
		if err != nil {
			return nil, err
		}
		result := &types.GraphResult{
			Success:    resumed.Status == types.JobCompleted,
			FinalState: resumed.Result,
			Error:      resumed.Error,
		}
		if resumed.Status == types.JobPaused {
			result.RequiresHumanInput = true
			result.CheckpointID = resumed.CheckpointID
		}
		return result, nil
	}

	graphExecutor, err := e.graphs.Get(graphID)
	if err != nil {
		return nil, err
	}
	return graphExecutor.Resume(ctx, checkpointID, humanInput)
}

// Workflow registry surface

// RegisterWorkflow registers a custom workflow definition
func (e *Engine) RegisterWorkflow(workflowID string, def *types.WorkflowDefinition) error {
	return e.workflows.Register(workflowID, def)
}

// GetWorkflow returns a registered custom workflow definition
func (e *Engine) GetWorkflow(workflowID string) (*types.WorkflowDefinition, error) {
	return e.workflows.Get(workflowID)
}

// ListWorkflows lists registered custom workflows
func (e *Engine) ListWorkflows() []registry.Summary {
	return e.workflows.List()
}

// DeleteWorkflow removes a registered custom workflow
func (e *Engine) DeleteWorkflow(workflowID string) error {
	return e.workflows.Delete(workflowID)
}

// ListPreBuilt lists the shipped workflow library
func (e *Engine) ListPreBuilt() []library.Entry {
	return e.library.List()
}

// ValidateWorkflowDefinition validates without registering
func (e *Engine) ValidateWorkflowDefinition(def *types.WorkflowDefinition) types.ValidationResult {
	return validator.CheckWorkflow(def)
}

// Graph registry surface

// RegisterGraph registers a graph definition
func (e *Engine) RegisterGraph(graphID string, def *types.GraphDefinition) error {
	return e.graphs.Register(graphID, def)
}

// GetGraph returns a registered graph definition
func (e *Engine) GetGraph(graphID string) (*types.GraphDefinition, error) {
	return e.graphs.Definition(graphID)
}

// ListGraphs lists registered graphs
func (e *Engine) ListGraphs() []graph.Summary {
	return e.graphs.List()
}

// DeleteGraph removes a registered graph
func (e *Engine) DeleteGraph(graphID string) error {
	return e.graphs.Delete(graphID)
}

// ValidateGraphDefinition validates without registering
func (e *Engine) ValidateGraphDefinition(def *types.GraphDefinition) types.ValidationResult {
	return validator.CheckGraph(def)
}

// GraphSummary renders a human-readable graph description
func (e *Engine) GraphSummary(graphID string) (string, error) {
	def, err := e.graphs.Definition(graphID)
	if err != nil {
		return "", err
	}
	return graph.FormatSummary(def), nil
}

// ListBuiltinTools lists tools available to graph nodes
func (e *Engine) ListBuiltinTools() []graph.ToolDefinition {
	return graph.BuiltinTools()
}

// Template surface

// ListTemplates lists templates, optionally by category
func (e *Engine) ListTemplates(category string) []*templates.Template {
	return e.templates.List(category)
}

// GetTemplate returns a template by id
func (e *Engine) GetTemplate(templateID string) (*templates.Template, error) {
	return e.templates.Get(templateID)
}

// TemplateCategories lists distinct template categories
func (e *Engine) TemplateCategories() []string {
	return e.templates.Categories()
}

// InstantiateTemplate renders a template; with autoRegister the result
// is stored as a custom workflow under workflowID.
func (e *Engine) InstantiateTemplate(templateID string, params map[string]any, autoRegister bool, workflowID string) (*types.WorkflowDefinition, error) {
	def, err := e.templates.Instantiate(templateID, params)
	if err != nil {
		return nil, err
	}
	if autoRegister {
		if workflowID == "" {
			return nil, types.NewValidationError("workflow_id", "workflow id is required for auto-registration")
		}
		if err := e.workflows.Register(workflowID, def); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// Job surface

// GetJob returns a job snapshot
func (e *Engine) GetJob(jobID string) (*types.Job, error) {
	return e.manager.Get(jobID)
}

// ListJobs lists jobs with optional filters
func (e *Engine) ListJobs(filter *jobs.ListFilter) []*types.Job {
	return e.manager.List(filter)
}

// CancelJob cancels a job
func (e *Engine) CancelJob(jobID string) error {
	return e.manager.Cancel(jobID)
}

// DeleteJob deletes a non-running job
func (e *Engine) DeleteJob(jobID string) error {
	return e.manager.Delete(jobID)
}

// JobStats returns queue statistics
func (e *Engine) JobStats() jobs.Stats {
	return e.manager.GetStats()
}

// History returns the history store, when configured
func (e *Engine) History() *history.Store {
	return e.history
}

// Runner exposes the configured task runner
func (e *Engine) Runner() types.TaskRunner {
	return e.runner
}
