package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *WorkflowsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workflows", c.RequireAuth(c.handleListWorkflows))
	mux.HandleFunc("POST /api/workflows", c.RequireAuth(c.handleCreateWorkflow))
	mux.HandleFunc("GET /api/workflows/{id}", c.RequireAuth(c.handleGetWorkflowById))
	mux.HandleFunc("PUT /api/workflows/{id}", c.RequireAuth(c.handleUpdateWorkflow))
	mux.HandleFunc("DELETE /api/workflows/{id}", c.RequireAuth(c.handleDeleteWorkflow))
	mux.HandleFunc("POST /api/workflows/{id}/start", c.RequireAuth(c.handleStartExecution))
	mux.HandleFunc("POST /api/workflows/{id}/startForAudience", c.RequireAuth(c.handleStartForAudience))
}

func (c *ExecutionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/executions", c.RequireAuth(c.handleListExecutions))
	mux.HandleFunc("GET /api/executions/{id}", c.RequireAuth(c.handleGetExecutionById))
	mux.HandleFunc("GET /api/executions/{id}/actions", c.RequireAuth(c.handleGetActionsForExecution))
	mux.HandleFunc("PATCH /api/executions/{id}/status", c.RequireAuth(c.handleUpdateExecutionStatus))
	mux.HandleFunc("POST /api/executions/{id}/process", c.RequireAuth(c.handleProcessExecution))
}

func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/events/formSubmission", c.RequireAuth(c.handleFormSubmission))
	mux.HandleFunc("GET /api/notifications", c.RequireAuth(c.handleListNotifications))
}

func (c *ProcessorsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/processors", c.RequireAuth(c.handleGetProcessors))
}
