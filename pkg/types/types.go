// ABOUTME: Core types and interfaces for the Artificer workflow engine
// ABOUTME: Defines workflow, graph, and job data structures shared across packages

package types

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	// JobPending indicates the job is queued and waiting for a worker slot
	JobPending JobStatus = "PENDING"
	// JobRunning indicates the job is currently executing
	JobRunning JobStatus = "RUNNING"
	// JobCompleted indicates the job finished successfully
	JobCompleted JobStatus = "COMPLETED"
	// JobFailed indicates the job finished with an error
	JobFailed JobStatus = "FAILED"
	// JobCancelled indicates the job was cancelled before completion
	JobCancelled JobStatus = "CANCELLED"
	// JobTimeout indicates the job exceeded its execution deadline
	JobTimeout JobStatus = "TIMEOUT"
	// JobPaused indicates a graph job is waiting for human input
	JobPaused JobStatus = "PAUSED"
)

// IsTerminal reports whether the status is a final state
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobTimeout:
		return true
	default:
		return false
	}
}

// jobTransitions is the authoritative state machine. Status only
// advances along these edges; PAUSED → RUNNING is the sole backward
// transition, via explicit resume.
var jobTransitions = map[JobStatus][]JobStatus{
	JobPending: {JobRunning, JobCancelled},
	JobRunning: {JobCompleted, JobFailed, JobCancelled, JobTimeout, JobPaused},
	JobPaused:  {JobRunning, JobCancelled},
}

// CanTransition reports whether moving from s to next is a legal
// state machine edge.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority orders jobs in the queue
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Weight returns the numeric rank of a priority; higher runs first.
// Unknown values rank as normal.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// WorkflowType classifies how a job's workflow reference resolves
type WorkflowType string

const (
	WorkflowPreBuilt WorkflowType = "pre-built"
	WorkflowCustom   WorkflowType = "custom"
	WorkflowGraph    WorkflowType = "graph"
)

// TaskDefinition describes a single task in a workflow
type TaskDefinition struct {
	ID          string         `yaml:"id" json:"id"`
	Type        string         `yaml:"type" json:"type"`
	Inputs      map[string]any `yaml:"inputs" json:"inputs"`
	DependsOn   []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Outputs     []string       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Retry       int            `yaml:"retry,omitempty" json:"retry,omitempty"`
	TimeoutMS   int64          `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
}

// WorkflowOptions controls workflow execution behavior
type WorkflowOptions struct {
	Parallel         bool  `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	RetryFailedTasks bool  `yaml:"retry_failed_tasks,omitempty" json:"retry_failed_tasks,omitempty"`
	TimeoutMS        int64 `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	MaxRetries       int   `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
}

// WorkflowDefinition is a declarative DAG of tasks
type WorkflowDefinition struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string            `yaml:"version,omitempty" json:"version,omitempty"`
	Tasks       []TaskDefinition  `yaml:"tasks" json:"tasks"`
	Output      map[string]string `yaml:"output,omitempty" json:"output,omitempty"`
	Options     WorkflowOptions   `yaml:"options,omitempty" json:"options,omitempty"`
	Metadata    map[string]any    `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Task returns the task with the given id, or nil
func (w *WorkflowDefinition) Task(id string) *TaskDefinition {
	for i := range w.Tasks {
		if w.Tasks[i].ID == id {
			return &w.Tasks[i]
		}
	}
	return nil
}

// NodeType classifies graph nodes
type NodeType string

const (
	// NodeAgent is an LLM-powered agent step
	NodeAgent NodeType = "agent"
	// NodeTool executes a named or inline function
	NodeTool NodeType = "tool"
	// NodeConditional routes execution; it is never executed as a step
	NodeConditional NodeType = "conditional"
	// NodeHuman pauses execution for human input
	NodeHuman NodeType = "human"
	// NodePassthrough passes state through unchanged
	NodePassthrough NodeType = "passthrough"
)

// EndNode is the sentinel edge target that terminates graph execution
const EndNode = "END"

// NodeDefinition describes a graph node. Fields beyond id and type
// are variant-specific; the validator enforces which are required.
type NodeDefinition struct {
	ID   string   `yaml:"id" json:"id"`
	Type NodeType `yaml:"type" json:"type"`

	// agent
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	Tools        []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// tool
	FunctionName string `yaml:"function_name,omitempty" json:"function_name,omitempty"`
	FunctionCode string `yaml:"function_code,omitempty" json:"function_code,omitempty"`

	// conditional
	ConditionCode string `yaml:"condition_code,omitempty" json:"condition_code,omitempty"`

	// human
	PromptMessage string `yaml:"prompt_message,omitempty" json:"prompt_message,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// EdgeTarget is the destination of a graph edge: either a single node
// id, or a routing map from branch label to node id when the source
// is a conditional.
type EdgeTarget struct {
	Node     string
	Branches map[string]string
}

// IsBranching reports whether the target is a conditional routing map
func (t EdgeTarget) IsBranching() bool {
	return len(t.Branches) > 0
}

// UnmarshalYAML accepts either a scalar node id or a branch mapping
func (t *EdgeTarget) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&t.Node)
	case yaml.MappingNode:
		return value.Decode(&t.Branches)
	default:
		return fmt.Errorf("edge target must be a node id or a branch mapping")
	}
}

// MarshalYAML emits the scalar or mapping form
func (t EdgeTarget) MarshalYAML() (interface{}, error) {
	if t.IsBranching() {
		return t.Branches, nil
	}
	return t.Node, nil
}

// UnmarshalJSON accepts either a string node id or a branch object
func (t *EdgeTarget) UnmarshalJSON(data []byte) error {
	var node string
	if err := json.Unmarshal(data, &node); err == nil {
		t.Node = node
		return nil
	}
	var branches map[string]string
	if err := json.Unmarshal(data, &branches); err != nil {
		return fmt.Errorf("edge target must be a node id or a branch mapping")
	}
	t.Branches = branches
	return nil
}

// MarshalJSON emits the string or object form
func (t EdgeTarget) MarshalJSON() ([]byte, error) {
	if t.IsBranching() {
		return json.Marshal(t.Branches)
	}
	return json.Marshal(t.Node)
}

// EdgeDefinition connects two graph nodes
type EdgeDefinition struct {
	FromNode string     `yaml:"from_node" json:"from_node"`
	ToNode   EdgeTarget `yaml:"to_node" json:"to_node"`
}

// StateField describes one field of a graph's state schema
type StateField struct {
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// StateSchema declares the shape of graph state
type StateSchema struct {
	Fields map[string]StateField `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// GraphOptions bounds graph execution
type GraphOptions struct {
	MaxIterations int   `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
	TimeoutMS     int64 `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

// GraphDefinition is a stateful, possibly cyclic workflow
type GraphDefinition struct {
	Name         string           `yaml:"name" json:"name"`
	Description  string           `yaml:"description,omitempty" json:"description,omitempty"`
	Version      string           `yaml:"version,omitempty" json:"version,omitempty"`
	StateSchema  StateSchema      `yaml:"state_schema" json:"state_schema"`
	Nodes        []NodeDefinition `yaml:"nodes" json:"nodes"`
	Edges        []EdgeDefinition `yaml:"edges" json:"edges"`
	EntryPoint   string           `yaml:"entry_point" json:"entry_point"`
	FinishPoints []string         `yaml:"finish_points,omitempty" json:"finish_points,omitempty"`
	Options      GraphOptions     `yaml:"options,omitempty" json:"options,omitempty"`
}

// Node returns the node with the given id, or nil
func (g *GraphDefinition) Node(id string) *NodeDefinition {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// EdgesFrom returns all edges originating from a node
func (g *GraphDefinition) EdgesFrom(nodeID string) []EdgeDefinition {
	var edges []EdgeDefinition
	for _, edge := range g.Edges {
		if edge.FromNode == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Progress tracks completion of a running job
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// NewProgress builds a progress record with percent derived from the counts
func NewProgress(current, total int, message string) Progress {
	percent := 0
	if total > 0 {
		percent = current * 100 / total
	}
	return Progress{Current: current, Total: total, Percent: percent, Message: message}
}

// ProgressFunc receives progress updates during execution
type ProgressFunc func(Progress)

// WebhookConfig describes the callback delivered on terminal job state
type WebhookConfig struct {
	URL     string            `yaml:"url" json:"url"`
	Method  string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Job is a scheduled execution of a workflow or graph
type Job struct {
	ID              string         `json:"jobId"`
	WorkflowID      string         `json:"workflowId"`
	WorkflowType    WorkflowType   `json:"workflowType"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	Priority        Priority       `json:"priority"`
	Webhook         *WebhookConfig `json:"webhook,omitempty"`
	Status          JobStatus      `json:"status"`
	Progress        Progress       `json:"progress"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	ExecutionTimeMS int64          `json:"executionTime,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	CheckpointID    string         `json:"checkpointId,omitempty"`
}

// Clone returns a shallow copy of the job safe to hand to callers
func (j *Job) Clone() *Job {
	copied := *j
	return &copied
}

// ValidationResult is the structured outcome of definition validation
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ExecutionResult is the outcome of a synchronous workflow execution
type ExecutionResult struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// GraphResult is the outcome of a graph execution. A paused execution
// carries RequiresHumanInput and the checkpoint to resume from.
type GraphResult struct {
	Success            bool           `json:"success"`
	FinalState         map[string]any `json:"final_state,omitempty"`
	RequiresHumanInput bool           `json:"requires_human_input,omitempty"`
	HumanPrompt        string         `json:"human_prompt,omitempty"`
	CheckpointID       string         `json:"checkpoint_id,omitempty"`
	Iterations         int            `json:"iterations"`
	Error              string         `json:"error,omitempty"`
}

// TaskRunner executes individual tasks by type. The engine holds no
// knowledge of what a task does; implementations own the type
// catalogue and their own input validation.
type TaskRunner interface {
	// Execute runs a single task and returns its output object
	Execute(ctx context.Context, taskType string, inputs map[string]any) (map[string]any, error)

	// Has reports whether a task type is registered
	Has(taskType string) bool

	// Types lists registered task types
	Types() []string
}

// Concurrency constraints for the job manager worker pool
const (
	// MinConcurrent is the minimum allowed concurrent job execution
	MinConcurrent = 1
	// MaxConcurrent is the maximum allowed concurrent job execution
	MaxConcurrent = 256
	// DefaultConcurrent is the default worker pool size
	DefaultConcurrent = 4
)

// ValidateConcurrent validates a worker pool size and returns a usable
// value. Zero selects the default; out-of-range values are an error.
func ValidateConcurrent(value int) (int, error) {
	if value == 0 {
		return DefaultConcurrent, nil
	}
	if value < MinConcurrent {
		return 0, fmt.Errorf("max_concurrent must be at least %d, got %d", MinConcurrent, value)
	}
	if value > MaxConcurrent {
		return 0, fmt.Errorf("max_concurrent cannot exceed %d, got %d", MaxConcurrent, value)
	}
	return value, nil
}
