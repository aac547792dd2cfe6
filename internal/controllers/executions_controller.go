package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/engageflow/engageflow/internal/engine"
	"github.com/engageflow/engageflow/internal/repository"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// ExecutionsController holds dependencies for execution HTTP endpoints.
type ExecutionsController struct {
	AuthController
	ExecutionRepo *repository.ExecutionRepository
	ActionRepo    *repository.ExecutionActionRepository
	WorkflowRepo  *repository.WorkflowRepository
	Processor     engine.Processor
}

func NewExecutionsController(executionRepo *repository.ExecutionRepository, actionRepo *repository.ExecutionActionRepository,
	workflowRepo *repository.WorkflowRepository, processor engine.Processor, trainerRepo engine.TrainerRepo) *ExecutionsController {
	return &ExecutionsController{
		ExecutionRepo:  executionRepo,
		ActionRepo:     actionRepo,
		WorkflowRepo:   workflowRepo,
		Processor:      processor,
		AuthController: AuthController{TrainerRepo: trainerRepo},
	}
}

func (c *ExecutionsController) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trainerID := trainerFromContext(r.Context())
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.ExecutionActive, models.ExecutionPaused, models.ExecutionCompleted, models.ExecutionCancelled:
	default:
		http.Error(w, "unknown status: "+status, http.StatusBadRequest)
		return
	}
	executions, err := c.ExecutionRepo.SearchByTrainer(trainerID, status)
	if err != nil {
		slog.Error("Failed to list executions", "trainer_id", trainerID, "error", err)
		http.Error(w, "failed to list executions", http.StatusInternalServerError)
		return
	}
	results := make([]models.ExecutionApiResponse, 0, len(*executions))
	for _, exec := range *executions {
		results = append(results, mapExecutionToApiExecution(&exec))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}

func (c *ExecutionsController) handleGetExecutionById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	exec, ok := c.executionFromPath(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapExecutionToApiExecution(exec))
}

func (c *ExecutionsController) handleGetActionsForExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	exec, ok := c.executionFromPath(w, r)
	if !ok {
		return
	}
	actions, err := c.ActionRepo.FindAllByExecutionID(exec.ID)
	if err != nil {
		slog.Error("Failed to load execution actions", "execution_id", exec.ID, "error", err)
		http.Error(w, "failed to load actions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(actions)
}

// handleUpdateExecutionStatus pauses, resumes or cancels an execution.
// Terminal executions never change status again.
func (c *ExecutionsController) handleUpdateExecutionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	exec, ok := c.executionFromPath(w, r)
	if !ok {
		return
	}
	var req models.UpdateExecutionStatusRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if !validStatusTransition(exec.Status, req.Status) {
		http.Error(w, "cannot change status from "+exec.Status+" to "+req.Status, http.StatusConflict)
		return
	}
	if err := c.ExecutionRepo.UpdateStatus(exec.ID, req.Status); err != nil {
		slog.Error("Failed to update execution status", "execution_id", exec.ID, "error", err)
		http.Error(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	slog.InfoContext(r.Context(), "Execution status changed", "execution_id", exec.ID, "from", exec.Status, "to", req.Status)
	exec.Status = req.Status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapExecutionToApiExecution(exec))
}

// handleProcessExecution runs the state machine once for this execution,
// outside the scheduler's poll cycle.
func (c *ExecutionsController) handleProcessExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	exec, ok := c.executionFromPath(w, r)
	if !ok {
		return
	}
	result, err := c.Processor.Process(r.Context(), exec.ID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotFound):
			http.Error(w, "execution not found", http.StatusNotFound)
		case errors.Is(err, engine.ErrAlreadyTerminal), errors.Is(err, engine.ErrClaimConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, engine.ErrConfiguration):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("Failed to process execution", "execution_id", exec.ID, "error", err)
			http.Error(w, "failed to process execution", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"result": string(result)})
}

func validStatusTransition(from string, to string) bool {
	switch to {
	case models.ExecutionPaused:
		return from == models.ExecutionActive
	case models.ExecutionActive:
		return from == models.ExecutionPaused
	case models.ExecutionCancelled:
		return from == models.ExecutionActive || from == models.ExecutionPaused
	}
	return false
}

// executionFromPath loads the {id} execution and checks that its workflow
// belongs to the authed trainer.
func (c *ExecutionsController) executionFromPath(w http.ResponseWriter, r *http.Request) (*domain.WorkflowExecution, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return nil, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "id is an integer", http.StatusBadRequest)
		return nil, false
	}
	exec, err := c.ExecutionRepo.FindByID(id)
	if err != nil || exec == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return nil, false
	}
	wf, err := c.WorkflowRepo.FindByIDForTrainer(exec.WorkflowID, trainerFromContext(r.Context()))
	if err != nil || wf == nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return nil, false
	}
	return exec, true
}
