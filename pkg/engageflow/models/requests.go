package models

import (
	"encoding/json"
	"time"
)

// CreateStepRequest is one step within a create/update workflow payload.
// Steps are ordered by their position in the slice; stepOrder is assigned
// server side.
type CreateStepRequest struct {
	StepType StepType        `json:"stepType"`
	Config   json.RawMessage `json:"config"`
}

// CreateWorkflowRequest is the payload for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	IsActive    *bool               `json:"isActive,omitempty"`
	Steps       []CreateStepRequest `json:"steps"`
}

// UpdateWorkflowRequest replaces workflow metadata and, when Steps is
// non-nil, the full step list. In-flight executions keep their existing step
// references.
type UpdateWorkflowRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	IsActive    *bool               `json:"isActive,omitempty"`
	Steps       []CreateStepRequest `json:"steps,omitempty"`
}

// StartExecutionRequest starts a workflow for a single client.
type StartExecutionRequest struct {
	ClientID int64 `json:"clientId"`
}

// UpdateExecutionStatusRequest pauses, resumes, cancels or completes an
// execution.
type UpdateExecutionStatusRequest struct {
	Status string `json:"status"`
}

// FormSubmissionEvent is posted by the form subsystem after a client submits
// a check-in form.
type FormSubmissionEvent struct {
	ClientID int64 `json:"clientId"`
	FormID   int64 `json:"formId"`
}

type StepApiResponse struct {
	ID        int64           `json:"id"`
	StepOrder int             `json:"stepOrder"`
	StepType  StepType        `json:"stepType"`
	Config    json.RawMessage `json:"config"`
}

type WorkflowApiResponse struct {
	ID          int64             `json:"id"`
	TrainerID   int64             `json:"trainerId"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	IsActive    bool              `json:"isActive"`
	Created     time.Time         `json:"created"`
	Updated     time.Time         `json:"updated"`
	Steps       []StepApiResponse `json:"steps,omitempty"`
}

type ExecutionApiResponse struct {
	ID            int64      `json:"id"`
	ExternalID    string     `json:"externalId"`
	WorkflowID    int64      `json:"workflowId"`
	ClientID      int64      `json:"clientId"`
	Status        string     `json:"status"`
	CurrentStepID int64      `json:"currentStepId,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	LastStepAt    *time.Time `json:"lastStepAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

type StartForAudienceResult struct {
	ClientID int64  `json:"clientId"`
	Status   string `json:"status"`
}

type StartForAudienceResponse struct {
	Started int                      `json:"started"`
	Results []StartForAudienceResult `json:"results"`
}
