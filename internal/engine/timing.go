package engine

import (
	"database/sql"
	"errors"
	"time"

	"github.com/engageflow/engageflow/pkg/engageflow/core"
	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

const day = 24 * time.Hour

// TimingGate evaluates a step's sendTiming against the execution's history:
// is this step due to run now, or should the execution sit untouched until a
// later tick or an external trigger.
type TimingGate struct {
	forms         FormRepo
	subscriptions SubscriptionRepo
	clock         core.Clock
}

func NewTimingGate(forms FormRepo, subscriptions SubscriptionRepo, clock core.Clock) *TimingGate {
	return &TimingGate{forms: forms, subscriptions: subscriptions, clock: clock}
}

func (g *TimingGate) Due(exec *domain.WorkflowExecution, cfg *models.StepConfig) (bool, error) {
	switch cfg.TimingOrDefault() {
	case models.TimingImmediate:
		return true, nil

	case models.TimingDelayDays:
		elapsed := g.clock.Now().Sub(exec.StartedAt)
		return elapsed >= time.Duration(cfg.DelayDays)*day, nil

	case models.TimingAfterFormSubmission:
		// No trigger form configured means nothing to wait on.
		if cfg.TriggerFormID == 0 {
			return true, nil
		}
		submission, err := g.forms.LatestSubmission(exec.ClientID, cfg.TriggerFormID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		// Only submissions made after the execution started count.
		if submission.SubmittedAt.Before(exec.StartedAt) {
			return false, nil
		}
		sinceSubmission := g.clock.Now().Sub(submission.SubmittedAt)
		return sinceSubmission >= time.Duration(cfg.SubmissionDelayDays)*day, nil

	case models.TimingBeforeSubscriptionEnd:
		sub, err := g.subscriptions.FindCurrentByClient(exec.ClientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		if !sub.EndDate.Valid {
			return false, nil
		}
		daysBefore := cfg.DaysBeforeEnd
		if daysBefore == 0 {
			daysBefore = 7
		}
		target := sub.EndDate.Time.Add(-time.Duration(daysBefore) * day)
		return !g.clock.Now().Before(target), nil
	}
	return true, nil
}

// WaitElapsed is the wait-step gate: has the configured number of days
// passed since the engine last acted on the execution. A fresh execution
// without a last_step_at falls back to its start time.
func WaitElapsed(exec *domain.WorkflowExecution, cfg *models.StepConfig, clock core.Clock) bool {
	since := exec.StartedAt
	if exec.LastStepAt.Valid {
		since = exec.LastStepAt.Time
	}
	elapsed := clock.Now().Sub(since)
	return elapsed >= time.Duration(cfg.Days)*day
}
