package engine

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

func TestExecute_FormStepDispatchesPrompt(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	notifier := &MockNotifier{DeliverOK: true}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, &MockFormRepo{}, notifier, &MockMessageNotifier{DeliverOK: true}, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	step := &domain.Step{ID: 20, StepType: "form"}
	e.Execute(context.Background(), exec, step, &models.StepConfig{FormID: 9})

	if notifier.Calls != 1 {
		t.Errorf("Expected one form prompt delivery, got %d", notifier.Calls)
	}
	if !actions.hasType("DISPATCHED") {
		t.Error("Expected a DISPATCHED action to be recorded")
	}
}

func TestExecute_FormStepMissingFormIsRecorded(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	forms := &MockFormRepo{
		FindByIDFunc: func(id int64) (*domain.Form, error) { return nil, sql.ErrNoRows },
	}
	notifier := &MockNotifier{DeliverOK: true}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, forms, notifier, &MockMessageNotifier{DeliverOK: true}, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	step := &domain.Step{ID: 20, StepType: "form"}
	e.Execute(context.Background(), exec, step, &models.StepConfig{FormID: 9})

	if notifier.Calls != 0 {
		t.Error("No prompt may go out for a missing form")
	}
	if !actions.hasType("RESOURCE_MISSING") {
		t.Error("Expected a RESOURCE_MISSING action to be recorded")
	}
}

func TestExecute_FormStepDefaultMessageNamesForm(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var delivered string
	notifier := &recordingFormNotifier{message: &delivered}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, &MockFormRepo{}, notifier, &MockMessageNotifier{DeliverOK: true}, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	step := &domain.Step{ID: 20, StepType: "form"}
	e.Execute(context.Background(), exec, step, &models.StepConfig{FormID: 9})

	if !strings.Contains(delivered, "Check-in") {
		t.Errorf("Expected the default prompt to name the form, got %q", delivered)
	}
}

type recordingFormNotifier struct {
	message *string
}

func (n *recordingFormNotifier) Deliver(ctx context.Context, client *domain.Client, message string) (bool, error) {
	*n.message = message
	return true, nil
}

func TestExecute_NotificationDispatchFailureIsNonFatal(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	notifier := &MockMessageNotifier{DeliverOK: false}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, &MockFormRepo{}, &MockNotifier{DeliverOK: true}, notifier, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	step := &domain.Step{ID: 20, StepType: "notification"}
	e.Execute(context.Background(), exec, step, &models.StepConfig{Title: "Hi", Message: "There"})

	if !actions.hasType("DISPATCH_FAILED") {
		t.Error("Expected a DISPATCH_FAILED action to be recorded")
	}
}

func TestExecute_ConditionStepRecordsItsPass(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, &MockFormRepo{}, &MockNotifier{DeliverOK: true},
		&MockMessageNotifier{DeliverOK: true}, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	step := &domain.Step{ID: 20, StepType: "condition"}
	e.Execute(context.Background(), exec, step, &models.StepConfig{})

	if !actions.hasType("CONDITION") {
		t.Error("Expected a CONDITION action to be recorded")
	}
}

func TestExecute_WaitAndAudienceHaveNoSideEffects(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	formNotifier := &MockNotifier{DeliverOK: true}
	messageNotifier := &MockMessageNotifier{DeliverOK: true}
	actions := &MockActionRepo{}
	e := NewStepExecutor(&MockClientRepo{}, &MockFormRepo{}, formNotifier, messageNotifier, actions, 42, clock)

	exec := &domain.WorkflowExecution{ID: 7, ClientID: 11}
	e.Execute(context.Background(), exec, &domain.Step{ID: 20, StepType: "wait"}, &models.StepConfig{Days: 3})
	e.Execute(context.Background(), exec, &domain.Step{ID: 21, StepType: "audience"}, &models.StepConfig{})

	if formNotifier.Calls != 0 || messageNotifier.Calls != 0 {
		t.Error("Wait and audience steps must not notify anyone")
	}
	if len(actions.Saved) != 0 {
		t.Errorf("Wait and audience steps must not write actions, got %d", len(actions.Saved))
	}
}
