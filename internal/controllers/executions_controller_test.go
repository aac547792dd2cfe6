package controllers

import (
	"database/sql"
	"testing"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

func TestValidStatusTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{models.ExecutionActive, models.ExecutionPaused, true},
		{models.ExecutionPaused, models.ExecutionActive, true},
		{models.ExecutionActive, models.ExecutionCancelled, true},
		{models.ExecutionPaused, models.ExecutionCancelled, true},
		{models.ExecutionCompleted, models.ExecutionActive, false},
		{models.ExecutionCancelled, models.ExecutionActive, false},
		{models.ExecutionCompleted, models.ExecutionPaused, false},
		{models.ExecutionActive, models.ExecutionCompleted, false},
		{models.ExecutionActive, "archived", false},
	}
	for _, tc := range cases {
		if got := validStatusTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("validStatusTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestMapExecutionToApiExecution(t *testing.T) {
	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	lastStep := started.Add(48 * time.Hour)
	exec := &domain.WorkflowExecution{
		ID:            7,
		ExternalID:    "ext-7",
		WorkflowID:    3,
		ClientID:      11,
		Status:        models.ExecutionActive,
		CurrentStepID: sql.NullInt64{Int64: 20, Valid: true},
		StartedAt:     started,
		LastStepAt:    sql.NullTime{Time: lastStep, Valid: true},
	}

	resp := mapExecutionToApiExecution(exec)
	if resp.ID != 7 || resp.ExternalID != "ext-7" || resp.CurrentStepID != 20 {
		t.Errorf("Unexpected mapping: %+v", resp)
	}
	if resp.LastStepAt == nil || !resp.LastStepAt.Equal(lastStep) {
		t.Errorf("Expected lastStepAt %v, got %v", lastStep, resp.LastStepAt)
	}
	if resp.CompletedAt != nil {
		t.Error("Expected nil completedAt for a running execution")
	}
}

func TestValidateWorkflowSteps(t *testing.T) {
	if err := validateWorkflowSteps("", nil); err == nil {
		t.Error("Expected an error for a missing name")
	}

	steps := []models.CreateStepRequest{
		{StepType: models.StepForm, Config: []byte(`{}`)},
	}
	if err := validateWorkflowSteps("Onboarding", steps); err == nil {
		t.Error("Expected an error for a form step without formId")
	}

	steps = []models.CreateStepRequest{
		{StepType: models.StepAudience, Config: []byte(`{"audienceType":"all"}`)},
		{StepType: models.StepForm, Config: []byte(`{"formId":9}`)},
		{StepType: models.StepWait, Config: []byte(`{"days":3}`)},
		{StepType: models.StepNotification, Config: []byte(`{"title":"Hi","message":"There"}`)},
	}
	if err := validateWorkflowSteps("Onboarding", steps); err != nil {
		t.Errorf("Expected a valid step list, got %v", err)
	}
}
