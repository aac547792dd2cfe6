package engine

import (
	"database/sql"
	"testing"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

func TestTimingGate_ImmediateIsAlwaysDue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	g := NewTimingGate(&MockFormRepo{}, &MockSubscriptionRepo{}, clock)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: clock.now}

	due, err := g.Due(exec, &models.StepConfig{})
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if !due {
		t.Error("A step without sendTiming must be due immediately")
	}
}

func TestTimingGate_DelayDays(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
	g := NewTimingGate(&MockFormRepo{}, &MockSubscriptionRepo{}, clock)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: clock.now.Add(-2 * 24 * time.Hour)}
	cfg := &models.StepConfig{SendTiming: models.TimingDelayDays, DelayDays: 3}

	due, err := g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if due {
		t.Error("Expected not due two days into a three day delay")
	}

	clock.Advance(24 * time.Hour)
	due, err = g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if !due {
		t.Error("Expected due once the delay elapsed")
	}
}

func TestTimingGate_AfterFormSubmission(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
	started := clock.now.Add(-5 * 24 * time.Hour)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: started}
	cfg := &models.StepConfig{SendTiming: models.TimingAfterFormSubmission, TriggerFormID: 9, SubmissionDelayDays: 1}

	var submission *domain.FormSubmission
	forms := &MockFormRepo{
		LatestSubmissionFunc: func(clientID int64, formID int64) (*domain.FormSubmission, error) {
			if submission == nil {
				return nil, sql.ErrNoRows
			}
			return submission, nil
		},
	}
	g := NewTimingGate(forms, &MockSubscriptionRepo{}, clock)

	// no submission yet
	due, err := g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if due {
		t.Error("Expected not due before any submission")
	}

	// a submission that predates the execution does not count
	submission = &domain.FormSubmission{FormID: 9, ClientID: 5, SubmittedAt: started.Add(-time.Hour)}
	due, _ = g.Due(exec, cfg)
	if due {
		t.Error("A submission from before the execution started must not count")
	}

	// fresh submission, delay still running
	submission = &domain.FormSubmission{FormID: 9, ClientID: 5, SubmittedAt: clock.now.Add(-time.Hour)}
	due, _ = g.Due(exec, cfg)
	if due {
		t.Error("Expected not due within the submission delay")
	}

	clock.Advance(24 * time.Hour)
	due, _ = g.Due(exec, cfg)
	if !due {
		t.Error("Expected due once the submission delay elapsed")
	}
}

func TestTimingGate_AfterFormSubmissionWithoutTriggerForm(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	g := NewTimingGate(&MockFormRepo{}, &MockSubscriptionRepo{}, clock)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: clock.now}
	cfg := &models.StepConfig{SendTiming: models.TimingAfterFormSubmission}

	due, err := g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if !due {
		t.Error("No trigger form configured means nothing to wait on")
	}
}

func TestTimingGate_BeforeSubscriptionEnd(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	endDate := clock.now.Add(10 * 24 * time.Hour)
	subs := &MockSubscriptionRepo{
		FindCurrentByClientFunc: func(clientID int64) (*domain.Subscription, error) {
			return &domain.Subscription{ID: 1, ClientID: 5, EndDate: sql.NullTime{Time: endDate, Valid: true}}, nil
		},
	}
	g := NewTimingGate(&MockFormRepo{}, subs, clock)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: clock.now}
	cfg := &models.StepConfig{SendTiming: models.TimingBeforeSubscriptionEnd} // defaults to 7 days

	due, err := g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if due {
		t.Error("Expected not due ten days out with a seven day window")
	}

	clock.Advance(3 * 24 * time.Hour)
	due, _ = g.Due(exec, cfg)
	if !due {
		t.Error("Expected due once inside the seven day window")
	}
}

func TestTimingGate_BeforeSubscriptionEndWithoutSubscription(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	g := NewTimingGate(&MockFormRepo{}, &MockSubscriptionRepo{}, clock)
	exec := &domain.WorkflowExecution{ClientID: 5, StartedAt: clock.now}
	cfg := &models.StepConfig{SendTiming: models.TimingBeforeSubscriptionEnd}

	due, err := g.Due(exec, cfg)
	if err != nil {
		t.Fatalf("Due returned error: %v", err)
	}
	if due {
		t.Error("No subscription means the step never becomes due")
	}
}

func TestWaitElapsed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
	cfg := &models.StepConfig{Days: 3}

	exec := &domain.WorkflowExecution{
		StartedAt:  clock.now.Add(-10 * 24 * time.Hour),
		LastStepAt: sql.NullTime{Time: clock.now.Add(-2 * 24 * time.Hour), Valid: true},
	}
	if WaitElapsed(exec, cfg, clock) {
		t.Error("Expected wait still pending at two of three days")
	}

	clock.Advance(24 * time.Hour)
	if !WaitElapsed(exec, cfg, clock) {
		t.Error("Expected wait elapsed at three days")
	}
}

func TestWaitElapsed_FallsBackToStartedAt(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
	exec := &domain.WorkflowExecution{StartedAt: clock.now.Add(-4 * 24 * time.Hour)}

	if !WaitElapsed(exec, &models.StepConfig{Days: 3}, clock) {
		t.Error("Without last_step_at the wait counts from started_at")
	}
}

func TestWaitElapsed_ZeroDaysIsImmediatelyDue(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	exec := &domain.WorkflowExecution{StartedAt: clock.now}

	if !WaitElapsed(exec, &models.StepConfig{Days: 0}, clock) {
		t.Error("A zero day wait must be due immediately")
	}
}
