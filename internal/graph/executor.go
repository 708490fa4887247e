// ABOUTME: Stateful graph executor with conditional routing and human-in-the-loop pauses
// ABOUTME: Runs agent, tool, human, and passthrough nodes with checkpointed state

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/internal/template"
	"github.com/loferris/artificer/internal/workflow/validator"
	"github.com/loferris/artificer/pkg/types"
)

// AgentTaskType is the task type the executor dispatches agent node
// LLM calls to. The task runner owns the actual model integration.
const AgentTaskType = "llm_chat"

// DefaultMaxIterations bounds cyclic graphs that never reach END
const DefaultMaxIterations = 50

// State keys the executor maintains on behalf of nodes
const (
	stateMessages     = "messages"
	stateLastResponse = "last_response"
	stateToolResults  = "tool_results"
	stateNeedsHuman   = "requires_human_input"
	stateHumanPrompt  = "human_prompt"
	stateAwaiting     = "awaiting_human"
)

// Executor runs a single graph definition. Conditional routing uses
// the template engine as a restricted expression language over the
// current state; arbitrary code execution is deliberately unsupported.
type Executor struct {
	def       *types.GraphDefinition
	runner    types.TaskRunner
	templates *template.Engine
	store     CheckpointStore
	logger    zerolog.Logger
}

// Config holds graph executor configuration
type Config struct {
	Runner      types.TaskRunner
	Templates   *template.Engine
	Checkpoints CheckpointStore
	Logger      *zerolog.Logger
}

// NewExecutor validates the definition and builds an executor for it
func NewExecutor(def *types.GraphDefinition, config *Config) (*Executor, error) {
	if err := validator.ValidateGraph(def); err != nil {
		return nil, err
	}
	if config == nil || config.Runner == nil {
		return nil, fmt.Errorf("graph executor requires a task runner")
	}

	templates := config.Templates
	if templates == nil {
		templates = template.New()
	}
	store := config.Checkpoints
	if store == nil {
		store = NewMemoryStore()
	}
	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	// Condition templates must at least parse; evaluation happens
	// against live state.
	for _, node := range def.Nodes {
		if node.Type == types.NodeConditional {
			if err := templates.Validate(node.ConditionCode); err != nil {
				return nil, types.NewValidationError("nodes",
					fmt.Sprintf("conditional node '%s': %v", node.ID, err))
			}
		}
	}

	return &Executor{
		def:       def,
		runner:    config.Runner,
		templates: templates,
		store:     store,
		logger:    logger,
	}, nil
}

// Checkpoints exposes the executor's checkpoint store
func (e *Executor) Checkpoints() CheckpointStore {
	return e.store
}

// InitialState builds the starting state: schema defaults first, then
// the caller's inputs over them.
func (e *Executor) InitialState(inputs map[string]any) (map[string]any, error) {
	state := make(map[string]any, len(e.def.StateSchema.Fields)+len(inputs))

	for name, field := range e.def.StateSchema.Fields {
		if field.Default != nil {
			copied, err := copystructure.Copy(field.Default)
			if err != nil {
				return nil, fmt.Errorf("failed to copy default for field '%s': %w", name, err)
			}
			state[name] = copied
		}
	}

	for key, value := range inputs {
		state[key] = value
	}
	return state, nil
}

// Execute runs the graph from its entry point. A human node pauses
// execution and returns a requires_human_input result carrying the
// checkpoint id; Resume continues from there.
func (e *Executor) Execute(ctx context.Context, inputs map[string]any, threadID string) (*types.GraphResult, error) {
	state, err := e.InitialState(inputs)
	if err != nil {
		return nil, err
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	return e.run(ctx, state, e.def.EntryPoint, threadID, 0)
}

// Resume continues a paused execution: human input fields are merged
// into the saved state, the human flags are cleared, and execution
// picks up at the node after the paused human node.
func (e *Executor) Resume(ctx context.Context, checkpointID string, humanInput map[string]any) (*types.GraphResult, error) {
	checkpoint, err := e.store.Load(checkpointID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewResumeError(checkpointID, "checkpoint not found")
		}
		return nil, err
	}

	state := checkpoint.State
	if state == nil {
		state = make(map[string]any)
	}
	if len(humanInput) > 0 {
		if err := mergo.Merge(&state, humanInput, mergo.WithOverride); err != nil {
			return nil, types.NewResumeError(checkpointID, "failed to merge human input: "+err.Error())
		}
	}

	state[stateNeedsHuman] = false
	delete(state, stateAwaiting)
	delete(state, stateHumanPrompt)

	e.logger.Info().
		Str("graph", e.def.Name).
		Str("checkpoint_id", checkpointID).
		Str("resume_node", checkpoint.NextNode).
		Msg("Resuming graph from checkpoint")

	if checkpoint.NextNode == "" || checkpoint.NextNode == types.EndNode {
		return &types.GraphResult{Success: true, FinalState: state, Iterations: checkpoint.Iterations}, nil
	}
	return e.run(ctx, state, checkpoint.NextNode, checkpointID, checkpoint.Iterations)
}

// run is the execution loop shared by Execute and Resume
func (e *Executor) run(ctx context.Context, state map[string]any, startNode, threadID string, iterations int) (*types.GraphResult, error) {
	maxIterations := e.def.Options.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	if e.def.Options.TimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.def.Options.TimeoutMS)*time.Millisecond)
		defer cancel()
	}

	current := startNode
	for {
		if err := ctx.Err(); err != nil {
			return nil, e.boundaryError(err)
		}
		if current == types.EndNode {
			return &types.GraphResult{Success: true, FinalState: state, Iterations: iterations}, nil
		}

		node := e.def.Node(current)
		if node == nil {
			return nil, types.NewNotFoundError("node", current)
		}

		iterations++
		if iterations > maxIterations {
			return nil, fmt.Errorf("graph '%s' exceeded iteration limit of %d", e.def.Name, maxIterations)
		}

		e.logger.Debug().
			Str("graph", e.def.Name).
			Str("node", node.ID).
			Str("type", string(node.Type)).
			Int("iteration", iterations).
			Msg("Executing graph node")

		// State is passed by value at node boundaries; nodes mutate
		// their own copy and the loop adopts it afterwards.
		working, err := copyState(state)
		if err != nil {
			return nil, err
		}

		switch node.Type {
		case types.NodeAgent:
			err = e.runAgentNode(ctx, node, working)
		case types.NodeTool:
			err = e.runToolNode(ctx, node, working)
		case types.NodeHuman:
			return e.pauseForHuman(node, working, threadID, iterations)
		case types.NodePassthrough:
			// no-op
		case types.NodeConditional:
			// Conditionals route; they are not state-mutating steps.
			// Reaching one directly means the definition used it as a
			// plain node, so route through it without counting work.
			iterations--
		default:
			err = fmt.Errorf("node '%s' has unsupported type: %s", node.ID, node.Type)
		}
		if err != nil {
			return nil, err
		}
		state = working

		next, err := e.nextNode(node, state)
		if err != nil {
			return nil, err
		}
		current = next
	}
}

func (e *Executor) boundaryError(err error) error {
	if err == context.DeadlineExceeded {
		return types.NewTimeoutError("graph '"+e.def.Name+"'", time.Duration(e.def.Options.TimeoutMS)*time.Millisecond)
	}
	return err
}

// runAgentNode invokes the LLM through the task runner, appends the
// response to the message history, and executes any requested tools.
func (e *Executor) runAgentNode(ctx context.Context, node *types.NodeDefinition, state map[string]any) error {
	inputs := map[string]any{
		"model":         node.Model,
		"system_prompt": node.SystemPrompt,
		"messages":      state[stateMessages],
	}
	if len(node.Tools) > 0 {
		inputs["tools"] = node.Tools
	}

	response, err := e.runner.Execute(ctx, AgentTaskType, inputs)
	if err != nil {
		return types.NewExecutionError(node.ID, string(types.NodeAgent), "agent call failed", err)
	}

	content, _ := response["content"].(string)
	messages, _ := state[stateMessages].([]any)
	messages = append(messages, map[string]any{"role": "assistant", "content": content})
	state[stateMessages] = messages
	state[stateLastResponse] = content

	toolCalls, _ := response["tool_calls"].([]any)
	if len(toolCalls) == 0 {
		return nil
	}

	var results []any
	for _, raw := range toolCalls {
		call, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := call["name"].(string)
		args, _ := call["args"].(map[string]any)
		if name == "" || !e.runner.Has(name) {
			results = append(results, map[string]any{"error": "unknown tool: " + name})
			continue
		}
		result, err := e.runner.Execute(ctx, name, args)
		if err != nil {
			results = append(results, map[string]any{"error": err.Error()})
			continue
		}
		results = append(results, result)
	}
	state[stateToolResults] = results
	return nil
}

// runToolNode executes a named function through the task runner, or an
// inline function_code template over the state, and stores the result
// under <node_id>_result.
func (e *Executor) runToolNode(ctx context.Context, node *types.NodeDefinition, state map[string]any) error {
	var result map[string]any
	var err error

	switch {
	case node.FunctionName != "":
		result, err = e.runner.Execute(ctx, node.FunctionName, state)
		if err != nil {
			return types.NewExecutionError(node.ID, string(types.NodeTool), "tool call failed", err)
		}
	default:
		rendered, evalErr := e.templates.Evaluate(node.FunctionCode, state)
		if evalErr != nil {
			return types.NewExecutionError(node.ID, string(types.NodeTool), "function_code evaluation failed", evalErr)
		}
		result = decodeToolOutput(rendered)
	}

	state[node.ID+"_result"] = result
	return nil
}

// decodeToolOutput interprets rendered function_code output: a JSON
// object is adopted as-is, anything else is wrapped.
func decodeToolOutput(rendered string) map[string]any {
	trimmed := strings.TrimSpace(rendered)
	if strings.HasPrefix(trimmed, "{") {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return map[string]any{"output": trimmed}
}

// pauseForHuman marks the state as awaiting input, checkpoints it
// together with the node to resume at, and returns the pause sentinel.
func (e *Executor) pauseForHuman(node *types.NodeDefinition, state map[string]any, threadID string, iterations int) (*types.GraphResult, error) {
	state[stateNeedsHuman] = true
	state[stateHumanPrompt] = node.PromptMessage
	state[stateAwaiting] = node.ID

	// The raw edge target goes into the checkpoint; a conditional
	// successor is evaluated on resume, after the human input lands.
	next, err := e.rawNext(node)
	if err != nil {
		return nil, err
	}

	checkpoint := &Checkpoint{
		ThreadID:   threadID,
		GraphName:  e.def.Name,
		State:      state,
		NextNode:   next,
		Iterations: iterations,
		SavedAt:    time.Now().UTC(),
	}
	if err := e.store.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	e.logger.Info().
		Str("graph", e.def.Name).
		Str("node", node.ID).
		Str("checkpoint_id", threadID).
		Msg("Graph paused for human input")

	return &types.GraphResult{
		Success:            false,
		FinalState:         state,
		RequiresHumanInput: true,
		HumanPrompt:        node.PromptMessage,
		CheckpointID:       threadID,
		Iterations:         iterations,
	}, nil
}

// rawNext returns a node's single outgoing edge target without
// evaluating conditionals.
func (e *Executor) rawNext(node *types.NodeDefinition) (string, error) {
	edges := e.def.EdgesFrom(node.ID)
	if len(edges) == 0 {
		if e.isFinishPoint(node.ID) {
			return types.EndNode, nil
		}
		return "", fmt.Errorf("no outgoing edge from node '%s'", node.ID)
	}
	if edges[0].ToNode.IsBranching() {
		return "", fmt.Errorf("node '%s' has a branching edge but is not conditional", node.ID)
	}
	return edges[0].ToNode.Node, nil
}

// nextNode picks the successor of a node. A finish point with no
// outgoing edges terminates; a conditional successor is evaluated
// immediately and its routing map consulted.
func (e *Executor) nextNode(node *types.NodeDefinition, state map[string]any) (string, error) {
	edges := e.def.EdgesFrom(node.ID)
	if len(edges) == 0 {
		if e.isFinishPoint(node.ID) {
			return types.EndNode, nil
		}
		return "", fmt.Errorf("no outgoing edge from node '%s'", node.ID)
	}

	edge := edges[0]
	if edge.ToNode.IsBranching() {
		if node.Type != types.NodeConditional {
			return "", fmt.Errorf("node '%s' has a branching edge but is not conditional", node.ID)
		}
		return e.routeConditional(node, edge.ToNode.Branches, state)
	}

	target := edge.ToNode.Node
	if target == types.EndNode {
		return types.EndNode, nil
	}

	// Route through conditionals transparently: the conditional makes
	// the routing decision for this node's outgoing edge.
	targetNode := e.def.Node(target)
	if targetNode != nil && targetNode.Type == types.NodeConditional {
		branches := map[string]string{}
		if condEdges := e.def.EdgesFrom(target); len(condEdges) > 0 && condEdges[0].ToNode.IsBranching() {
			branches = condEdges[0].ToNode.Branches
		}
		return e.routeConditional(targetNode, branches, state)
	}

	return target, nil
}

// routeConditional evaluates a conditional node's expression over the
// state. The result is looked up in the routing map first; an
// unmapped result is taken as a node id directly. An empty result or
// the sentinel terminates.
func (e *Executor) routeConditional(node *types.NodeDefinition, branches map[string]string, state map[string]any) (string, error) {
	decision, err := e.templates.Evaluate(node.ConditionCode, state)
	if err != nil {
		return "", types.NewExecutionError(node.ID, string(types.NodeConditional), "condition evaluation failed", err)
	}
	decision = strings.TrimSpace(decision)

	if mapped, ok := branches[decision]; ok {
		decision = mapped
	}
	if decision == "" || decision == types.EndNode {
		return types.EndNode, nil
	}
	if e.def.Node(decision) == nil {
		return "", fmt.Errorf("conditional '%s' routed to unknown node '%s'", node.ID, decision)
	}

	e.logger.Debug().
		Str("graph", e.def.Name).
		Str("conditional", node.ID).
		Str("next", decision).
		Msg("Conditional routing decision")

	return decision, nil
}

func (e *Executor) isFinishPoint(nodeID string) bool {
	for _, finish := range e.def.FinishPoints {
		if finish == nodeID {
			return true
		}
	}
	return false
}

func copyState(state map[string]any) (map[string]any, error) {
	copied, err := copystructure.Copy(state)
	if err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}
	return copied.(map[string]any), nil
}
