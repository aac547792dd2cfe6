package engine

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

type MockProcessor struct {
	ProcessFunc func(ctx context.Context, executionID int64) (models.ProcessResult, error)
	Calls       []int64
}

func (m *MockProcessor) Process(ctx context.Context, executionID int64) (models.ProcessResult, error) {
	m.Calls = append(m.Calls, executionID)
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, executionID)
	}
	return models.ResultAdvanced, nil
}

func TestTick_SkipsPendingWaitSteps(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}

	// three processable executions: an immediate step, a wait with time left,
	// and a wait that has elapsed
	pending := []domain.WorkflowExecution{
		{ID: 1, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 101, Valid: true}, StartedAt: clock.now.Add(-time.Hour)},
		{ID: 2, WorkflowID: 3, ClientID: 6, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 102, Valid: true}, StartedAt: clock.now.Add(-10 * 24 * time.Hour),
			LastStepAt: sql.NullTime{Time: clock.now.Add(-2 * 24 * time.Hour), Valid: true}},
		{ID: 3, WorkflowID: 3, ClientID: 7, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 102, Valid: true}, StartedAt: clock.now.Add(-10 * 24 * time.Hour),
			LastStepAt: sql.NullTime{Time: clock.now.Add(-4 * 24 * time.Hour), Valid: true}},
	}
	execRepo := &MockExecutionRepo{
		FindProcessableFunc: func(limit int) (*[]domain.WorkflowExecution, error) { return &pending, nil },
	}
	stepRepo := &MockStepRepo{
		FindByIDFunc: func(id int64) (*domain.Step, error) {
			if id == 101 {
				return &domain.Step{ID: 101, WorkflowID: 3, StepOrder: 1, StepType: "notification", Config: ""}, nil
			}
			return &domain.Step{ID: 102, WorkflowID: 3, StepOrder: 2, StepType: "wait", Config: `{"days":3}`}, nil
		},
	}

	executionQueue = make(chan int64, 10)
	defer func() { executionQueue = nil }()

	s := NewScheduler(&MockProcessor{}, execRepo, stepRepo, &MockActionRepo{}, nil, 42, clock)
	s.Tick(context.Background())

	var queued []int64
	for len(executionQueue) > 0 {
		queued = append(queued, <-executionQueue)
	}
	if len(queued) != 2 || queued[0] != 1 || queued[1] != 3 {
		t.Errorf("Expected executions 1 and 3 queued, got %v", queued)
	}
}

func TestNotifyExternalEvent_ProcessesOnlyMatchingGates(t *testing.T) {
	clock := &fakeClock{now: time.Now()}

	active := []domain.WorkflowExecution{
		{ID: 1, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 201, Valid: true}},
		{ID: 2, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 202, Valid: true}},
		{ID: 3, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 203, Valid: true}},
	}
	execRepo := &MockExecutionRepo{
		FindActiveByClientFunc: func(clientID int64) (*[]domain.WorkflowExecution, error) { return &active, nil },
	}
	stepRepo := &MockStepRepo{
		FindByIDFunc: func(id int64) (*domain.Step, error) {
			switch id {
			case 201:
				return &domain.Step{ID: 201, WorkflowID: 3, StepOrder: 1, StepType: "notification",
					Config: `{"sendTiming":"after_form_submission","triggerFormId":9}`}, nil
			case 202:
				return &domain.Step{ID: 202, WorkflowID: 3, StepOrder: 1, StepType: "notification",
					Config: `{"sendTiming":"after_form_submission","triggerFormId":8}`}, nil
			default:
				return &domain.Step{ID: 203, WorkflowID: 3, StepOrder: 1, StepType: "wait", Config: `{"days":3}`}, nil
			}
		},
	}
	processor := &MockProcessor{}

	s := NewScheduler(processor, execRepo, stepRepo, &MockActionRepo{}, nil, 42, clock)
	s.NotifyExternalEvent(context.Background(), 5, models.ExternalEvent{Kind: models.EventFormSubmission, FormID: 9})

	if len(processor.Calls) != 1 || processor.Calls[0] != 1 {
		t.Errorf("Expected only execution 1 processed, got %v", processor.Calls)
	}
}

func TestNotifyExternalEvent_ErrorsAreIsolated(t *testing.T) {
	clock := &fakeClock{now: time.Now()}

	active := []domain.WorkflowExecution{
		{ID: 1, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 201, Valid: true}},
		{ID: 2, WorkflowID: 3, ClientID: 5, Status: models.ExecutionActive,
			CurrentStepID: sql.NullInt64{Int64: 201, Valid: true}},
	}
	execRepo := &MockExecutionRepo{
		FindActiveByClientFunc: func(clientID int64) (*[]domain.WorkflowExecution, error) { return &active, nil },
	}
	stepRepo := &MockStepRepo{
		FindByIDFunc: func(id int64) (*domain.Step, error) {
			return &domain.Step{ID: 201, WorkflowID: 3, StepOrder: 1, StepType: "notification",
				Config: `{"sendTiming":"after_form_submission","triggerFormId":9}`}, nil
		},
	}
	processor := &MockProcessor{
		ProcessFunc: func(ctx context.Context, executionID int64) (models.ProcessResult, error) {
			if executionID == 1 {
				return models.ResultNoop, errors.New("boom")
			}
			return models.ResultAdvanced, nil
		},
	}

	s := NewScheduler(processor, execRepo, stepRepo, &MockActionRepo{}, nil, 42, clock)
	s.NotifyExternalEvent(context.Background(), 5, models.ExternalEvent{Kind: models.EventFormSubmission, FormID: 9})

	if len(processor.Calls) != 2 {
		t.Errorf("Expected both executions processed despite the error, got %v", processor.Calls)
	}
}

func TestNotifyExternalEvent_UnknownKindIsIgnored(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	execRepo := &MockExecutionRepo{
		FindActiveByClientFunc: func(clientID int64) (*[]domain.WorkflowExecution, error) {
			t.Error("Unknown event kinds must not hit the repository")
			return nil, nil
		},
	}

	s := NewScheduler(&MockProcessor{}, execRepo, &MockStepRepo{}, &MockActionRepo{}, nil, 42, clock)
	s.NotifyExternalEvent(context.Background(), 5, models.ExternalEvent{Kind: "subscription_renewed"})
}

func TestWakeup_DoesNotBlock(t *testing.T) {
	s := NewScheduler(&MockProcessor{}, &MockExecutionRepo{}, &MockStepRepo{}, &MockActionRepo{}, nil, 42, &fakeClock{now: time.Now()})
	// second call hits a full channel and must not block
	s.Wakeup()
	s.Wakeup()
}
