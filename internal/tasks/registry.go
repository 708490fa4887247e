// ABOUTME: Task registry implementing the engine's task runner contract
// ABOUTME: Maps task types to executors; the engine stays ignorant of task semantics

package tasks

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/internal/tasks/checksum"
	"github.com/loferris/artificer/internal/tasks/chunk"
	"github.com/loferris/artificer/internal/tasks/debug"
	"github.com/loferris/artificer/internal/tasks/remote"
	"github.com/loferris/artificer/internal/tasks/render"
	"github.com/loferris/artificer/internal/tasks/tokens"
	"github.com/loferris/artificer/internal/tasks/webhook"
	"github.com/loferris/artificer/internal/template"
	"github.com/loferris/artificer/pkg/types"
)

// Executor runs a single task type
type Executor interface {
	Execute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// Config holds task registry configuration
type Config struct {
	// Templates backs the render_template task
	Templates *template.Engine

	// RemoteEndpoints maps externally-served task types (PDF, OCR,
	// LLM) to service URLs. Unmapped remote types report that an
	// external service is required.
	RemoteEndpoints map[string]string

	Logger *zerolog.Logger
}

// Registry manages all available task executors
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// remoteTypes are the catalogue entries delegated to external services
var remoteTypes = []string{
	"extract_pdf_text",
	"process_pdf",
	"ocr_image",
	"import_markdown",
	"import_html",
	"export_html",
	"export_markdown",
	"extract_pdf",
	"search_documents",
	"web_search",
	"llm_chat",
}

// New creates a task registry with all built-in task types
func New(config *Config) *Registry {
	if config == nil {
		config = &Config{}
	}
	templates := config.Templates
	if templates == nil {
		templates = template.New()
	}
	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	r := &Registry{executors: make(map[string]Executor)}

	// In-process document tasks
	r.Register("chunk_document", chunk.New())
	r.Register("chunk_text", chunk.New())
	r.Register("count_tokens", tokens.New())
	r.Register("checksum", checksum.New())
	r.Register("hash", checksum.New())
	r.Register("render_template", render.New(templates))
	r.Register("template", render.New(templates))

	// HTTP callout task
	r.Register("webhook_call", webhook.New(nil))
	r.Register("http_request", webhook.New(nil))

	// Diagnostics
	r.Register("debug", debug.New(logger))
	r.Register("log", debug.New(logger))

	// Externally-served tasks (document conversion, OCR, LLM)
	for _, taskType := range remoteTypes {
		r.Register(taskType, remote.New(taskType, config.RemoteEndpoints[taskType], nil))
	}

	return r
}

// Register adds a task executor for a specific task type
func (r *Registry) Register(taskType string, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[taskType] = executor
}

// Execute implements types.TaskRunner
func (r *Registry) Execute(ctx context.Context, taskType string, inputs map[string]any) (map[string]any, error) {
	r.mu.RLock()
	executor, exists := r.executors[taskType]
	r.mu.RUnlock()

	if !exists {
		return nil, types.NewNotFoundError("task", taskType)
	}
	return executor.Execute(ctx, inputs)
}

// Has implements types.TaskRunner
func (r *Registry) Has(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.executors[taskType]
	return exists
}

// Types implements types.TaskRunner
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taskTypes := make([]string, 0, len(r.executors))
	for taskType := range r.executors {
		taskTypes = append(taskTypes, taskType)
	}
	sort.Strings(taskTypes)
	return taskTypes
}
