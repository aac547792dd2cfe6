package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/engageflow/engageflow/internal/notify"
	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// StepExecutor runs the side effect of a single step occurrence. It is best
// effort by design: a failed dispatch is recorded in the audit trail and
// swallowed so the state machine still advances on schedule. Clients might
// therefore silently miss a notification; the execution_actions rows are the
// operator's way of noticing.
type StepExecutor struct {
	clients         ClientRepo
	forms           FormRepo
	formNotifier    notify.FormNotifier
	messageNotifier notify.MessageNotifier
	actions         ExecutionActionRepo
	processorID     int64
	clock           core.Clock
}

func NewStepExecutor(clients ClientRepo, forms FormRepo, formNotifier notify.FormNotifier,
	messageNotifier notify.MessageNotifier, actions ExecutionActionRepo, processorID int64, clock core.Clock) *StepExecutor {
	return &StepExecutor{
		clients:         clients,
		forms:           forms,
		formNotifier:    formNotifier,
		messageNotifier: messageNotifier,
		actions:         actions,
		processorID:     processorID,
		clock:           clock,
	}
}

// Execute performs the step's side effect. It never returns an error: all
// failure modes are non-fatal per the dispatch policy.
func (e *StepExecutor) Execute(ctx context.Context, exec *domain.WorkflowExecution, step *domain.Step, cfg *models.StepConfig) {
	switch models.StepType(step.StepType) {
	case models.StepAudience:
		// informational only

	case models.StepForm:
		e.executeForm(ctx, exec, step, cfg)

	case models.StepNotification:
		e.executeNotification(ctx, exec, step, cfg)

	case models.StepWait:
		// gating happens in the scheduler, nothing to do here

	case models.StepCondition:
		// reserved for boolean branching, currently always passes
		e.record(exec, step, "CONDITION", "condition step treated as passing")

	default:
		slog.WarnContext(ctx, "Unknown step type", "execution_id", exec.ID, "step_id", step.ID, "step_type", step.StepType)
	}
}

func (e *StepExecutor) executeForm(ctx context.Context, exec *domain.WorkflowExecution, step *domain.Step, cfg *models.StepConfig) {
	form, err := e.forms.FindByID(cfg.FormID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "Form referenced by step not found", "execution_id", exec.ID, "step_id", step.ID, "form_id", cfg.FormID)
			e.record(exec, step, "RESOURCE_MISSING", fmt.Sprintf("form %d not found", cfg.FormID))
			return
		}
		slog.ErrorContext(ctx, "Error loading form", "execution_id", exec.ID, "form_id", cfg.FormID, "error", err)
		e.record(exec, step, "DISPATCH_FAILED", err.Error())
		return
	}

	client, err := e.clients.FindByID(exec.ClientID)
	if err != nil {
		slog.ErrorContext(ctx, "Error loading client for form step", "execution_id", exec.ID, "client_id", exec.ClientID, "error", err)
		e.record(exec, step, "DISPATCH_FAILED", err.Error())
		return
	}

	message := cfg.Message
	if message == "" {
		message = fmt.Sprintf("Please complete the form: %s", form.Name)
	}
	delivered, err := e.formNotifier.Deliver(ctx, client, message)
	if err != nil || !delivered {
		slog.ErrorContext(ctx, "Form prompt dispatch failed", "execution_id", exec.ID, "form_id", form.ID, "error", err)
		e.record(exec, step, "DISPATCH_FAILED", fmt.Sprintf("form %d prompt not delivered", form.ID))
		return
	}
	e.record(exec, step, "DISPATCHED", fmt.Sprintf("form %d prompt sent to client %d", form.ID, client.ID))
}

func (e *StepExecutor) executeNotification(ctx context.Context, exec *domain.WorkflowExecution, step *domain.Step, cfg *models.StepConfig) {
	client, err := e.clients.FindByID(exec.ClientID)
	if err != nil {
		slog.ErrorContext(ctx, "Error loading client for notification step", "execution_id", exec.ID, "client_id", exec.ClientID, "error", err)
		e.record(exec, step, "DISPATCH_FAILED", err.Error())
		return
	}

	title := cfg.Title
	if title == "" {
		title = "Workflow Notification"
	}
	delivered, err := e.messageNotifier.Deliver(ctx, client, title, cfg.Message)
	if err != nil || !delivered {
		slog.ErrorContext(ctx, "Notification dispatch failed", "execution_id", exec.ID, "client_id", client.ID, "error", err)
		e.record(exec, step, "DISPATCH_FAILED", fmt.Sprintf("notification to client %d not delivered", client.ID))
		return
	}
	e.record(exec, step, "DISPATCHED", fmt.Sprintf("notification sent to client %d", client.ID))
}

func (e *StepExecutor) record(exec *domain.WorkflowExecution, step *domain.Step, actionType string, text string) {
	_, _ = e.actions.Save(&domain.ExecutionAction{
		ExecutionID: exec.ID,
		StepID:      sql.NullInt64{Int64: step.ID, Valid: true},
		ProcessorID: e.processorID,
		Type:        actionType,
		Name:        step.StepType,
		Text:        text,
		DateTime:    e.clock.Now(),
	})
}
