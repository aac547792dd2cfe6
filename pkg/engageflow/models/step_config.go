package models

import (
	"encoding/json"
	"fmt"
)

// StepConfig is the decoded form of a step's JSON config column. One struct
// covers every step type; ParseStepConfig validates the fields the given type
// actually requires so a malformed config is rejected at load time rather
// than surfacing mid-execution.
type StepConfig struct {
	// common to all step types
	Repeat      RepeatPolicy `json:"repeat,omitempty"`
	RepeatCount int          `json:"repeatCount,omitempty"`

	SendTiming          SendTiming `json:"sendTiming,omitempty"`
	DelayDays           int        `json:"delayDays,omitempty"`
	TriggerFormID       int64      `json:"triggerFormId,omitempty"`
	SubmissionDelayDays int        `json:"submissionDelayDays,omitempty"`
	DaysBeforeEnd       int        `json:"daysBeforeEnd,omitempty"`

	// wait
	Days int `json:"days,omitempty"`

	// form
	FormID  int64  `json:"formId,omitempty"`
	Message string `json:"message,omitempty"`

	// notification
	Title string `json:"title,omitempty"`

	// audience
	AudienceType       string  `json:"audienceType,omitempty"`
	SelectedPackageIDs []int64 `json:"selectedPackageIds,omitempty"`
	SelectedClientIDs  []int64 `json:"selectedClientIds,omitempty"`
}

// ParseStepConfig decodes and validates a step config for the given type.
func ParseStepConfig(stepType StepType, raw string) (*StepConfig, error) {
	if !stepType.Valid() {
		return nil, fmt.Errorf("unknown step type: %s", stepType)
	}
	var cfg StepConfig
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return nil, fmt.Errorf("invalid step config json: %w", err)
		}
	}

	switch cfg.Repeat {
	case "", RepeatOnce, RepeatUntilSubscriptionEnds:
	case RepeatCustom:
		if cfg.RepeatCount < 1 {
			return nil, fmt.Errorf("custom repeat requires repeatCount >= 1, got %d", cfg.RepeatCount)
		}
	default:
		return nil, fmt.Errorf("unknown repeat policy: %s", cfg.Repeat)
	}

	switch cfg.SendTiming {
	case "", TimingImmediate:
	case TimingDelayDays:
		if cfg.DelayDays < 0 {
			return nil, fmt.Errorf("delayDays must not be negative, got %d", cfg.DelayDays)
		}
	case TimingAfterFormSubmission:
		if cfg.SubmissionDelayDays < 0 {
			return nil, fmt.Errorf("submissionDelayDays must not be negative, got %d", cfg.SubmissionDelayDays)
		}
	case TimingBeforeSubscriptionEnd:
		if cfg.DaysBeforeEnd < 0 {
			return nil, fmt.Errorf("daysBeforeEnd must not be negative, got %d", cfg.DaysBeforeEnd)
		}
	default:
		return nil, fmt.Errorf("unknown sendTiming: %s", cfg.SendTiming)
	}

	switch stepType {
	case StepWait:
		if cfg.Days < 0 {
			return nil, fmt.Errorf("wait step days must not be negative, got %d", cfg.Days)
		}
	case StepForm:
		if cfg.FormID <= 0 {
			return nil, fmt.Errorf("form step requires formId")
		}
	case StepAudience:
		switch cfg.AudienceType {
		case "", "all", "packages", "clients":
		default:
			return nil, fmt.Errorf("unknown audienceType: %s", cfg.AudienceType)
		}
	}

	return &cfg, nil
}

// RepeatOrDefault returns the effective repeat policy, defaulting to once.
func (c *StepConfig) RepeatOrDefault() RepeatPolicy {
	if c.Repeat == "" {
		return RepeatOnce
	}
	return c.Repeat
}

// TimingOrDefault returns the effective send timing, defaulting to immediate.
func (c *StepConfig) TimingOrDefault() SendTiming {
	if c.SendTiming == "" {
		return TimingImmediate
	}
	return c.SendTiming
}
