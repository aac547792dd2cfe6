package engine

import (
	"encoding/json"
	"fmt"

	"github.com/engageflow/engageflow/pkg/engageflow/domain"
	"github.com/engageflow/engageflow/pkg/engageflow/models"
)

// RepeatEvaluator decides whether the current step must run again before the
// execution may advance.
type RepeatEvaluator struct {
	subscriptions SubscriptionRepo
}

func NewRepeatEvaluator(subscriptions SubscriptionRepo) *RepeatEvaluator {
	return &RepeatEvaluator{subscriptions: subscriptions}
}

// ShouldRepeat returns the repeat decision and, when repeating, the updated
// execution data blob carrying the per-step repeat counters.
func (e *RepeatEvaluator) ShouldRepeat(exec *domain.WorkflowExecution, stepID int64, cfg *models.StepConfig) (bool, string, error) {
	switch cfg.RepeatOrDefault() {
	case models.RepeatOnce:
		return false, "", nil

	case models.RepeatUntilSubscriptionEnds:
		active, err := e.subscriptions.IsActive(exec.ClientID)
		if err != nil {
			return false, "", err
		}
		return active, dataOrEmpty(exec), nil

	case models.RepeatCustom:
		counters, err := parseCounters(exec)
		if err != nil {
			return false, "", err
		}
		key := repeatKey(stepID)
		if counters[key] >= cfg.RepeatCount {
			return false, "", nil
		}
		counters[key]++
		updated, err := json.Marshal(counters)
		if err != nil {
			return false, "", err
		}
		return true, string(updated), nil
	}
	return false, "", nil
}

func repeatKey(stepID int64) string {
	return fmt.Sprintf("step_%d_repeat", stepID)
}

func dataOrEmpty(exec *domain.WorkflowExecution) string {
	if exec.Data.Valid && exec.Data.String != "" {
		return exec.Data.String
	}
	return "{}"
}

func parseCounters(exec *domain.WorkflowExecution) (map[string]int, error) {
	counters := map[string]int{}
	if exec.Data.Valid && exec.Data.String != "" {
		if err := json.Unmarshal([]byte(exec.Data.String), &counters); err != nil {
			return nil, fmt.Errorf("execution %d data is not valid json: %w", exec.ID, err)
		}
	}
	return counters, nil
}
