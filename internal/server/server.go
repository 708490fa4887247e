// ABOUTME: HTTP API server exposing the engine's execution and registry surface
// ABOUTME: JSON endpoints for workflows, graphs, templates, and job administration

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/loferris/artificer/internal/engine"
	"github.com/loferris/artificer/internal/jobs"
	"github.com/loferris/artificer/internal/logging"
	"github.com/loferris/artificer/pkg/types"
)

// Server serves the engine over HTTP
type Server struct {
	engine *engine.Engine
	server *http.Server
	logger zerolog.Logger
}

// Config holds server configuration
type Config struct {
	Port   int
	Engine *engine.Engine
	Logger *zerolog.Logger
}

// New creates an API server
func New(config *Config) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	logger := logging.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	s := &Server{engine: config.Engine, logger: logger}

	mux := http.NewServeMux()

	// Execution
	mux.HandleFunc("POST /api/workflows/execute", s.handleExecute)
	mux.HandleFunc("POST /api/workflows/execute-async", s.handleExecuteAsync)

	// Workflow registry
	mux.HandleFunc("GET /api/workflows", s.handleListWorkflows)
	mux.HandleFunc("POST /api/workflows/validate", s.handleValidateWorkflow)
	mux.HandleFunc("POST /api/workflows/custom", s.handleRegisterWorkflow)
	mux.HandleFunc("GET /api/workflows/custom/{id}", s.handleGetWorkflow)
	mux.HandleFunc("DELETE /api/workflows/custom/{id}", s.handleDeleteWorkflow)

	// Templates
	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/templates/categories", s.handleTemplateCategories)
	mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /api/templates/{id}/instantiate", s.handleInstantiateTemplate)

	// Graphs
	mux.HandleFunc("GET /api/graphs", s.handleListGraphs)
	mux.HandleFunc("POST /api/graphs", s.handleRegisterGraph)
	mux.HandleFunc("POST /api/graphs/validate", s.handleValidateGraph)
	mux.HandleFunc("GET /api/graphs/{id}", s.handleGetGraph)
	mux.HandleFunc("DELETE /api/graphs/{id}", s.handleDeleteGraph)
	mux.HandleFunc("GET /api/graphs/{id}/summary", s.handleGraphSummary)
	mux.HandleFunc("POST /api/graphs/{id}/execute", s.handleExecuteGraph)
	mux.HandleFunc("POST /api/graphs/{id}/resume", s.handleResumeGraph)
	mux.HandleFunc("GET /api/tools", s.handleListTools)

	// Jobs
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/stats", s.handleJobStats)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleDeleteJob)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving; blocks until shutdown
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps engine error kinds onto HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsValidation(err):
		status = http.StatusBadRequest
	case types.IsNotFound(err):
		status = http.StatusNotFound
	case types.IsQueueFull(err):
		status = http.StatusTooManyRequests
	default:
		var resumeErr *types.ResumeError
		if errors.As(err, &resumeErr) {
			status = http.StatusConflict
		}
	}
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

type executeRequest struct {
	WorkflowID string               `json:"workflowId"`
	Inputs     map[string]any       `json:"inputs"`
	Priority   types.Priority       `json:"priority,omitempty"`
	Webhook    *types.WebhookConfig `json:"webhook,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var request executeRequest
	if !s.decode(w, r, &request) {
		return
	}

	result := s.engine.Execute(r.Context(), request.WorkflowID, request.Inputs)
	if !result.Success {
		s.writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecuteAsync(w http.ResponseWriter, r *http.Request) {
	var request executeRequest
	if !s.decode(w, r, &request) {
		return
	}

	job, err := s.engine.ExecuteAsync(request.WorkflowID, request.Inputs, &jobs.SubmitOptions{
		Priority: request.Priority,
		Webhook:  request.Webhook,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"jobId": job.ID, "status": job.Status})
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"preBuilt": s.engine.ListPreBuilt(),
		"custom":   s.engine.ListWorkflows(),
	})
}

type registerWorkflowRequest struct {
	WorkflowID string                    `json:"workflowId"`
	Definition *types.WorkflowDefinition `json:"definition"`
}

func (s *Server) handleRegisterWorkflow(w http.ResponseWriter, r *http.Request) {
	var request registerWorkflowRequest
	if !s.decode(w, r, &request) {
		return
	}

	if err := s.engine.RegisterWorkflow(request.WorkflowID, request.Definition); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"workflowId": request.WorkflowID, "registered": true})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	def, err := s.engine.GetWorkflow(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteWorkflow(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Definition *types.WorkflowDefinition `json:"definition"`
	}
	if !s.decode(w, r, &request) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.ValidateWorkflowDefinition(request.Definition))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.engine.ListTemplates(r.URL.Query().Get("category"))
	s.writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleTemplateCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": s.engine.TemplateCategories()})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.engine.GetTemplate(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tmpl)
}

type instantiateRequest struct {
	Params       map[string]any `json:"params"`
	AutoRegister bool           `json:"autoRegister,omitempty"`
	WorkflowID   string         `json:"workflowId,omitempty"`
}

func (s *Server) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	var request instantiateRequest
	if !s.decode(w, r, &request) {
		return
	}

	def, err := s.engine.InstantiateTemplate(r.PathValue("id"), request.Params, request.AutoRegister, request.WorkflowID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	response := map[string]any{"definition": def}
	if request.AutoRegister {
		response["registered"] = true
		response["workflowId"] = request.WorkflowID
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": s.engine.ListGraphs()})
}

type registerGraphRequest struct {
	GraphID    string                 `json:"graphId"`
	Definition *types.GraphDefinition `json:"definition"`
}

func (s *Server) handleRegisterGraph(w http.ResponseWriter, r *http.Request) {
	var request registerGraphRequest
	if !s.decode(w, r, &request) {
		return
	}

	if err := s.engine.RegisterGraph(request.GraphID, request.Definition); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"graphId": request.GraphID, "registered": true})
}

func (s *Server) handleValidateGraph(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Definition *types.GraphDefinition `json:"definition"`
	}
	if !s.decode(w, r, &request) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.ValidateGraphDefinition(request.Definition))
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	def, err := s.engine.GetGraph(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteGraph(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleGraphSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.GraphSummary(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

type executeGraphRequest struct {
	Inputs   map[string]any `json:"inputs"`
	ThreadID string         `json:"threadId,omitempty"`
}

func (s *Server) handleExecuteGraph(w http.ResponseWriter, r *http.Request) {
	var request executeGraphRequest
	if !s.decode(w, r, &request) {
		return
	}

	result, err := s.engine.ExecuteGraph(r.Context(), r.PathValue("id"), request.Inputs, request.ThreadID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type resumeGraphRequest struct {
	CheckpointID string         `json:"checkpointId"`
	HumanInput   map[string]any `json:"humanInput"`
}

func (s *Server) handleResumeGraph(w http.ResponseWriter, r *http.Request) {
	var request resumeGraphRequest
	if !s.decode(w, r, &request) {
		return
	}

	result, err := s.engine.ResumeGraph(r.Context(), r.PathValue("id"), request.CheckpointID, request.HumanInput)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": s.engine.ListBuiltinTools()})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := &jobs.ListFilter{
		Status:       types.JobStatus(query.Get("status")),
		WorkflowID:   query.Get("workflowId"),
		WorkflowType: types.WorkflowType(query.Get("workflowType")),
	}
	if limit := query.Get("limit"); limit != "" {
		_, _ = fmt.Sscanf(limit, "%d", &filter.Limit)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": s.engine.ListJobs(filter)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engine.GetJob(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CancelJob(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteJob(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleJobStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.JobStats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
