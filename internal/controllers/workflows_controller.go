package controllers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/engageflow/engageflow/internal/engine"
	"github.com/engageflow/engageflow/internal/repository"
	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// WorkflowsController holds dependencies for workflow HTTP endpoints.
type WorkflowsController struct {
	AuthController
	WorkflowRepo  *repository.WorkflowRepository
	StepRepo      *repository.StepRepository
	ExecutionRepo *repository.ExecutionRepository
	ClientRepo    *repository.ClientRepository
	Scheduler     *engine.Scheduler
	Clock         core.Clock
}

func NewWorkflowsController(workflowRepo *repository.WorkflowRepository, stepRepo *repository.StepRepository,
	executionRepo *repository.ExecutionRepository, clientRepo *repository.ClientRepository,
	scheduler *engine.Scheduler, trainerRepo engine.TrainerRepo, clock core.Clock) *WorkflowsController {
	return &WorkflowsController{
		WorkflowRepo:   workflowRepo,
		StepRepo:       stepRepo,
		ExecutionRepo:  executionRepo,
		ClientRepo:     clientRepo,
		Scheduler:      scheduler,
		Clock:          clock,
		AuthController: AuthController{TrainerRepo: trainerRepo},
	}
}

func (c *WorkflowsController) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trainerID := trainerFromContext(r.Context())
	workflows, err := c.WorkflowRepo.FindByTrainer(trainerID)
	if err != nil {
		slog.Error("Failed to list workflows", "trainer_id", trainerID, "error", err)
		http.Error(w, "failed to list workflows", http.StatusInternalServerError)
		return
	}
	results := make([]models.WorkflowApiResponse, 0, len(*workflows))
	for _, wf := range *workflows {
		results = append(results, mapWorkflowToApiWorkflow(&wf, nil))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(results)
}

func (c *WorkflowsController) handleGetWorkflowById(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wf, ok := c.workflowFromPath(w, r)
	if !ok {
		return
	}
	steps, err := c.StepRepo.FindByWorkflowID(wf.ID)
	if err != nil {
		slog.Error("Failed to load steps", "workflow_id", wf.ID, "error", err)
		http.Error(w, "failed to load workflow", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapWorkflowToApiWorkflow(wf, steps))
}

func (c *WorkflowsController) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.CreateWorkflowRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := validateWorkflowSteps(req.Name, req.Steps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trainerID := trainerFromContext(r.Context())
	now := c.Clock.Now().UTC()
	wf := &domain.Workflow{
		TrainerID: trainerID,
		Name:      req.Name,
		IsActive:  req.IsActive == nil || *req.IsActive,
		Created:   now,
		Updated:   now,
	}
	if req.Description != "" {
		wf.Description = sql.NullString{String: req.Description, Valid: true}
	}
	id, err := c.WorkflowRepo.Save(wf)
	if err != nil {
		slog.Error("Failed to save workflow", "error", err)
		http.Error(w, "failed to create workflow", http.StatusInternalServerError)
		return
	}
	wf.ID = id

	steps, err := c.saveSteps(id, req.Steps)
	if err != nil {
		slog.Error("Failed to save workflow steps", "workflow_id", id, "error", err)
		http.Error(w, "failed to create workflow", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Created workflow", "workflow_id", id, "trainer_id", trainerID, "steps", len(req.Steps))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapWorkflowToApiWorkflow(wf, steps))
}

func (c *WorkflowsController) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wf, ok := c.workflowFromPath(w, r)
	if !ok {
		return
	}
	var req models.UpdateWorkflowRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := validateWorkflowSteps(req.Name, req.Steps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wf.Name = req.Name
	wf.Description = sql.NullString{String: req.Description, Valid: req.Description != ""}
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}
	wf.Updated = c.Clock.Now().UTC()
	if err := c.WorkflowRepo.Update(wf); err != nil {
		slog.Error("Failed to update workflow", "workflow_id", wf.ID, "error", err)
		http.Error(w, "failed to update workflow", http.StatusInternalServerError)
		return
	}

	// A nil step list means metadata-only update; a present list replaces the
	// steps wholesale. Executions pointing at replaced steps keep running and
	// surface a not-found next time they process.
	steps, err := c.StepRepo.FindByWorkflowID(wf.ID)
	if req.Steps != nil {
		if err := c.StepRepo.DeleteByWorkflowID(wf.ID); err != nil {
			slog.Error("Failed to delete workflow steps", "workflow_id", wf.ID, "error", err)
			http.Error(w, "failed to update workflow", http.StatusInternalServerError)
			return
		}
		steps, err = c.saveSteps(wf.ID, req.Steps)
	}
	if err != nil {
		slog.Error("Failed to save workflow steps", "workflow_id", wf.ID, "error", err)
		http.Error(w, "failed to update workflow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapWorkflowToApiWorkflow(wf, steps))
}

func (c *WorkflowsController) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wf, ok := c.workflowFromPath(w, r)
	if !ok {
		return
	}
	if err := c.StepRepo.DeleteByWorkflowID(wf.ID); err != nil {
		slog.Error("Failed to delete workflow steps", "workflow_id", wf.ID, "error", err)
		http.Error(w, "failed to delete workflow", http.StatusInternalServerError)
		return
	}
	if err := c.WorkflowRepo.Delete(wf.ID); err != nil {
		slog.Error("Failed to delete workflow", "workflow_id", wf.ID, "error", err)
		http.Error(w, "failed to delete workflow", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *WorkflowsController) handleStartExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wf, ok := c.workflowFromPath(w, r)
	if !ok {
		return
	}
	var req models.StartExecutionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.ClientID <= 0 {
		http.Error(w, "clientId is required", http.StatusBadRequest)
		return
	}

	exec, err := c.startForClient(wf, req.ClientID, trainerFromContext(r.Context()))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errClientNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, errWorkflowInactive) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	c.Scheduler.Wakeup()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(mapExecutionToApiExecution(exec))
}

func (c *WorkflowsController) handleStartForAudience(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wf, ok := c.workflowFromPath(w, r)
	if !ok {
		return
	}
	trainerID := trainerFromContext(r.Context())

	clientIDs, err := c.resolveAudience(wf, trainerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := models.StartForAudienceResponse{Results: make([]models.StartForAudienceResult, 0, len(clientIDs))}
	for _, clientID := range clientIDs {
		exec, err := c.startForClient(wf, clientID, trainerID)
		switch {
		case err != nil:
			slog.Warn("Failed to start execution for client", "workflow_id", wf.ID, "client_id", clientID, "error", err)
			resp.Results = append(resp.Results, models.StartForAudienceResult{ClientID: clientID, Status: "error"})
		case exec == nil:
			resp.Results = append(resp.Results, models.StartForAudienceResult{ClientID: clientID, Status: "skipped"})
		default:
			resp.Started++
			resp.Results = append(resp.Results, models.StartForAudienceResult{ClientID: clientID, Status: "started"})
		}
	}

	slog.InfoContext(r.Context(), "Started workflow for audience", "workflow_id", wf.ID, "started", resp.Started, "audience", len(clientIDs))
	c.Scheduler.Wakeup()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

var (
	errClientNotFound   = errors.New("client not found")
	errWorkflowInactive = errors.New("workflow is not active")
)

// startForClient creates one active execution, or returns (nil, nil) when the
// client already has an active execution of this workflow.
func (c *WorkflowsController) startForClient(wf *domain.Workflow, clientID int64, trainerID int64) (*domain.WorkflowExecution, error) {
	if !wf.IsActive {
		return nil, errWorkflowInactive
	}
	client, err := c.ClientRepo.FindByID(clientID)
	if err != nil || client == nil || client.TrainerID != trainerID {
		return nil, errClientNotFound
	}

	existing, err := c.ExecutionRepo.FindActiveByWorkflowAndClient(wf.ID, clientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		slog.Warn("Client already has an active execution", "workflow_id", wf.ID, "client_id", clientID, "execution_id", existing.ID)
		return nil, nil
	}

	var firstStep sql.NullInt64
	steps, err := c.StepRepo.FindByWorkflowID(wf.ID)
	if err != nil {
		return nil, err
	}
	if len(*steps) > 0 {
		firstStep = sql.NullInt64{Int64: (*steps)[0].ID, Valid: true}
	}

	now := c.Clock.Now().UTC()
	exec := &domain.WorkflowExecution{
		ExternalID:    uuid.NewString(),
		WorkflowID:    wf.ID,
		ClientID:      clientID,
		Status:        models.ExecutionActive,
		CurrentStepID: firstStep,
		StartedAt:     now,
		Modified:      now,
	}
	id, err := c.ExecutionRepo.Save(exec)
	if err != nil {
		return nil, err
	}
	exec.ID = id
	return exec, nil
}

// resolveAudience expands the workflow's leading audience step into client
// ids. A workflow without an audience step cannot be bulk started.
func (c *WorkflowsController) resolveAudience(wf *domain.Workflow, trainerID int64) ([]int64, error) {
	steps, err := c.StepRepo.FindByWorkflowID(wf.ID)
	if err != nil {
		return nil, err
	}
	if len(*steps) == 0 || models.StepType((*steps)[0].StepType) != models.StepAudience {
		return nil, errors.New("workflow has no audience step")
	}
	cfg, err := models.ParseStepConfig(models.StepAudience, (*steps)[0].Config)
	if err != nil {
		return nil, err
	}
	switch cfg.AudienceType {
	case "", "all":
		return c.ClientRepo.FindIDsByTrainer(trainerID)
	case "packages":
		return c.ClientRepo.FindIDsBySubscribedPackages(cfg.SelectedPackageIDs)
	case "clients":
		return cfg.SelectedClientIDs, nil
	}
	return nil, errors.New("unknown audienceType: " + cfg.AudienceType)
}

// workflowFromPath loads the {id} workflow scoped to the authed trainer.
func (c *WorkflowsController) workflowFromPath(w http.ResponseWriter, r *http.Request) (*domain.Workflow, bool) {
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
	wf, err := c.WorkflowRepo.FindByIDForTrainer(id, trainerFromContext(r.Context()))
	if err != nil || wf == nil {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return nil, false
	}
	return wf, true
}

func validateWorkflowSteps(name string, steps []models.CreateStepRequest) error {
	if name == "" {
		return errors.New("name is required")
	}
	for i, s := range steps {
		if _, err := models.ParseStepConfig(s.StepType, string(s.Config)); err != nil {
			return errors.New("step " + strconv.Itoa(i+1) + ": " + err.Error())
		}
	}
	return nil
}

func (c *WorkflowsController) saveSteps(workflowID int64, reqs []models.CreateStepRequest) (*[]domain.Step, error) {
	steps := make([]domain.Step, 0, len(reqs))
	for i, s := range reqs {
		step := domain.Step{
			WorkflowID: workflowID,
			StepOrder:  i + 1,
			StepType:   string(s.StepType),
			Config:     string(s.Config),
		}
		id, err := c.StepRepo.Save(&step)
		if err != nil {
			return nil, err
		}
		step.ID = id
		steps = append(steps, step)
	}
	return &steps, nil
}

func mapWorkflowToApiWorkflow(wf *domain.Workflow, steps *[]domain.Step) models.WorkflowApiResponse {
	resp := models.WorkflowApiResponse{
		ID:        wf.ID,
		TrainerID: wf.TrainerID,
		Name:      wf.Name,
		IsActive:  wf.IsActive,
		Created:   wf.Created,
		Updated:   wf.Updated,
	}
	if wf.Description.Valid {
		resp.Description = wf.Description.String
	}
	if steps != nil {
		for _, s := range *steps {
			resp.Steps = append(resp.Steps, models.StepApiResponse{
				ID:        s.ID,
				StepOrder: s.StepOrder,
				StepType:  models.StepType(s.StepType),
				Config:    json.RawMessage(s.Config),
			})
		}
	}
	return resp
}

func mapExecutionToApiExecution(exec *domain.WorkflowExecution) models.ExecutionApiResponse {
	resp := models.ExecutionApiResponse{
		ID:         exec.ID,
		ExternalID: exec.ExternalID,
		WorkflowID: exec.WorkflowID,
		ClientID:   exec.ClientID,
		Status:     exec.Status,
		StartedAt:  exec.StartedAt,
	}
	if exec.CurrentStepID.Valid {
		resp.CurrentStepID = exec.CurrentStepID.Int64
	}
	if exec.LastStepAt.Valid {
		t := exec.LastStepAt.Time
		resp.LastStepAt = &t
	}
	if exec.CompletedAt.Valid {
		t := exec.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}
